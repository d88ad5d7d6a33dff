package domain

import (
	"fmt"
	"strings"
	"time"
)

// Schedule is a user-owned medication schedule. The reminder engine reads
// these; it never mutates them.
type Schedule struct {
	ID             string
	OwnerID        string
	PrescriptionID *string
	Name           string
	Dosage         string
	Times          []TimeOfDay
	StartDate      Date
	EndDate        Date
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *Schedule) Validate() error {
	if strings.TrimSpace(s.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(s.Times) == 0 {
		return fmt.Errorf("%w: at least one time of day is required", ErrValidation)
	}

	seen := make(map[TimeOfDay]struct{}, len(s.Times))
	for _, tod := range s.Times {
		if !tod.IsValid() {
			return fmt.Errorf("%w: invalid time of day %q", ErrValidation, tod)
		}
		if _, dup := seen[tod]; dup {
			return fmt.Errorf("%w: duplicate time of day %q", ErrValidation, tod)
		}
		seen[tod] = struct{}{}
	}

	if !s.StartDate.IsValid() {
		return fmt.Errorf("%w: invalid start date %q", ErrValidation, s.StartDate)
	}
	if !s.EndDate.IsValid() {
		return fmt.Errorf("%w: invalid end date %q", ErrValidation, s.EndDate)
	}
	if s.EndDate.Before(s.StartDate) {
		return fmt.Errorf("%w: end date %s precedes start date %s", ErrValidation, s.EndDate, s.StartDate)
	}

	return nil
}

// ActiveOn reports whether the schedule's active range contains d,
// bounds inclusive.
func (s *Schedule) ActiveOn(d Date) bool {
	return !d.Before(s.StartDate) && !d.After(s.EndDate)
}

// DueAt reports whether t is one of the schedule's dose times. Matching is
// exact on (hour, minute); cadence tolerance is the loop's concern.
func (s *Schedule) DueAt(t TimeOfDay) bool {
	for _, tod := range s.Times {
		if tod == t {
			return true
		}
	}
	return false
}

// Prescription groups schedules entered from the same doctor's order.
type Prescription struct {
	ID         string
	OwnerID    string
	Title      string
	DoctorName string
	IssuedOn   Date
	CreatedAt  time.Time
}

func (p *Prescription) Validate() error {
	if strings.TrimSpace(p.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.IssuedOn != "" && !p.IssuedOn.IsValid() {
		return fmt.Errorf("%w: invalid issue date %q", ErrValidation, p.IssuedOn)
	}
	return nil
}
