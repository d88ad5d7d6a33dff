// Package clock abstracts wall-clock access so the reminder engine can run
// against a deterministic fake in tests.
package clock

import (
	"time"

	"github.com/dosewatch/dosewatch/internal/domain"
)

// Clock supplies the current time at second resolution, plus the derived
// calendar date and minute-of-day in the canonical local frame.
type Clock interface {
	Now() time.Time
	Today() domain.Date
	TimeOfDay() domain.TimeOfDay
}

type systemClock struct{}

// System returns a Clock backed by the process wall clock.
func System() Clock { return systemClock{} }

func (systemClock) Now() time.Time {
	return time.Now().Truncate(time.Second)
}

func (systemClock) Today() domain.Date {
	return domain.DateAt(time.Now())
}

func (systemClock) TimeOfDay() domain.TimeOfDay {
	return domain.TimeOfDayAt(time.Now())
}

// Fixed is a Clock pinned to a single instant. Tests move it by replacing
// the value.
type Fixed struct {
	Instant time.Time
}

func (f *Fixed) Now() time.Time { return f.Instant.Truncate(time.Second) }

func (f *Fixed) Today() domain.Date { return domain.DateAt(f.Instant) }

func (f *Fixed) TimeOfDay() domain.TimeOfDay { return domain.TimeOfDayAt(f.Instant) }
