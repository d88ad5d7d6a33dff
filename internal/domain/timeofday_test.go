package domain

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{name: "valid morning time", input: "08:00", want: "08:00"},
		{name: "valid evening time", input: "21:45", want: "21:45"},
		{name: "unpadded hour is normalized", input: "8:00", want: "08:00"},
		{name: "surrounding whitespace is trimmed", input: " 14:30 ", want: "14:30"},
		{name: "missing minutes", input: "08", wantErr: true},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "08:60", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "not a time", input: "soon", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTimeOfDay(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseTimeOfDay(%q) expected error, got %q", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q) error = %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("ParseTimeOfDay(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestTimeOfDayAtTruncatesToMinute(t *testing.T) {
	t.Parallel()

	instant := time.Date(2024, 1, 15, 8, 0, 59, 999, time.UTC)
	if got := TimeOfDayAt(instant); got != "08:00" {
		t.Fatalf("TimeOfDayAt() = %q, want 08:00", got)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	got, err := ParseDate("2024-01-15")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if got != "2024-01-15" {
		t.Fatalf("ParseDate() = %q, want 2024-01-15", got)
	}

	if _, err := ParseDate("15.01.2024"); err == nil {
		t.Fatal("ParseDate() should reject non-ISO dates")
	}
	if _, err := ParseDate("2024-02-30"); err == nil {
		t.Fatal("ParseDate() should reject impossible dates")
	}
}

func TestDateOrdering(t *testing.T) {
	t.Parallel()

	early := Date("2024-01-15")
	late := Date("2024-02-01")

	if !early.Before(late) {
		t.Fatal("2024-01-15 should be before 2024-02-01")
	}
	if !late.After(early) {
		t.Fatal("2024-02-01 should be after 2024-01-15")
	}
	if early.Before(early) || early.After(early) {
		t.Fatal("a date should be neither before nor after itself")
	}
}

func TestDateAt(t *testing.T) {
	t.Parallel()

	instant := time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC)
	if got := DateAt(instant); got != "2024-01-15" {
		t.Fatalf("DateAt() = %q, want 2024-01-15", got)
	}
}
