package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	timeOfDayLayout = "15:04"
	dateLayout      = "2006-01-02"
)

// TimeOfDay is a minute-resolution wall-clock time in the canonical local
// frame, formatted "HH:MM". Zero-padded, so lexicographic order is
// chronological order.
type TimeOfDay string

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(s)
	parsed, err := time.Parse(timeOfDayLayout, trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: invalid time of day %q", ErrValidation, s)
	}
	return TimeOfDay(parsed.Format(timeOfDayLayout)), nil
}

// TimeOfDayAt truncates a timestamp to its wall-clock minute.
func TimeOfDayAt(t time.Time) TimeOfDay {
	return TimeOfDay(t.Format(timeOfDayLayout))
}

func (t TimeOfDay) String() string { return string(t) }

func (t TimeOfDay) IsValid() bool {
	_, err := ParseTimeOfDay(string(t))
	return err == nil && string(t) == mustNormalizeTime(string(t))
}

// Hour returns the hour component. Only meaningful on valid values.
func (t TimeOfDay) Hour() int {
	parsed, err := time.Parse(timeOfDayLayout, string(t))
	if err != nil {
		return 0
	}
	return parsed.Hour()
}

// Minute returns the minute component. Only meaningful on valid values.
func (t TimeOfDay) Minute() int {
	parsed, err := time.Parse(timeOfDayLayout, string(t))
	if err != nil {
		return 0
	}
	return parsed.Minute()
}

// Date is a calendar date in the canonical local frame, formatted
// "YYYY-MM-DD". Lexicographic order is chronological order.
type Date string

func ParseDate(s string) (Date, error) {
	trimmed := strings.TrimSpace(s)
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	return Date(parsed.Format(dateLayout)), nil
}

// DateAt returns the calendar date of a timestamp.
func DateAt(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

func (d Date) String() string { return string(d) }

func (d Date) IsValid() bool {
	parsed, err := ParseDate(string(d))
	return err == nil && parsed == d
}

func (d Date) Before(other Date) bool { return string(d) < string(other) }

func (d Date) After(other Date) bool { return string(d) > string(other) }

func mustNormalizeTime(s string) string {
	parsed, err := time.Parse(timeOfDayLayout, s)
	if err != nil {
		return ""
	}
	return parsed.Format(timeOfDayLayout)
}
