package domain

import (
	"fmt"
	"strings"
	"time"
)

// Occurrence identifies one specific "take this dose now" moment. The triple
// is the idempotency key: two occurrences are equal iff all three components
// match.
type Occurrence struct {
	ScheduleID string
	Date       Date
	Time       TimeOfDay
}

func (o Occurrence) Key() string {
	return fmt.Sprintf("%s|%s|%s", o.ScheduleID, o.Date, o.Time)
}

func (o Occurrence) Validate() error {
	if strings.TrimSpace(o.ScheduleID) == "" {
		return fmt.Errorf("%w: schedule id is required", ErrValidation)
	}
	if !o.Date.IsValid() {
		return fmt.Errorf("%w: invalid occurrence date %q", ErrValidation, o.Date)
	}
	if !o.Time.IsValid() {
		return fmt.Errorf("%w: invalid occurrence time %q", ErrValidation, o.Time)
	}
	return nil
}

// Outcome is the lifecycle state of a dispatch record. PENDING is set by the
// claim insert; the terminal states are immutable once written.
type Outcome string

const (
	OutcomePending    Outcome = "PENDING"
	OutcomeDelivered  Outcome = "DELIVERED"
	OutcomeFailed     Outcome = "FAILED"
	OutcomeSuppressed Outcome = "SUPPRESSED"
)

func (o Outcome) String() string { return string(o) }

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomePending, OutcomeDelivered, OutcomeFailed, OutcomeSuppressed:
		return true
	}
	return false
}

func (o Outcome) IsTerminal() bool {
	return o.IsValid() && o != OutcomePending
}

func ParseOutcomeFromString(s string) (Outcome, error) {
	o := Outcome(strings.ToUpper(strings.TrimSpace(s)))
	if !o.IsValid() {
		return "", fmt.Errorf("%w: invalid outcome %q", ErrValidation, s)
	}
	return o, nil
}

// DispatchRecord is the audit trail entry for one occurrence. It is created
// the instant the occurrence is claimed and finalized exactly once; the
// engine never deletes records.
type DispatchRecord struct {
	ID           string
	ScheduleID   string
	DueDate      Date
	DueTime      TimeOfDay
	OwnerID      string
	Recipient    string
	Channel      Channel
	Outcome      Outcome
	AttemptCount int
	Detail       string
	AttemptedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *DispatchRecord) Occurrence() Occurrence {
	return Occurrence{
		ScheduleID: r.ScheduleID,
		Date:       r.DueDate,
		Time:       r.DueTime,
	}
}
