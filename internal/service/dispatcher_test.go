package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dosewatch/dosewatch/internal/domain"
	"github.com/dosewatch/dosewatch/internal/provider"
	"go.uber.org/zap"
)

func testUser() *domain.User {
	return &domain.User{ID: "u1", Name: "Ada", Target: "ada@example.com", Channel: domain.ChannelEmail}
}

func newTestDispatcher(t *testing.T, p provider.Provider) *Dispatcher {
	t.Helper()

	d, err := NewDispatcher(p, &fakeRateLimiter{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	// Backoff sleeps are skipped so retry tests run instantly.
	d.sleep = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}
	return d
}

func TestDispatchDeliveredFirstAttempt(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	d := newTestDispatcher(t, p)
	schedule := testSchedule("s1", "08:00")

	result := d.Dispatch(context.Background(), testOccurrence(), &schedule, testUser())

	if result.Outcome != domain.OutcomeDelivered {
		t.Fatalf("outcome = %s, want DELIVERED", result.Outcome)
	}
	if result.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", result.Attempts)
	}
	if p.callCount() != 1 {
		t.Fatalf("provider calls = %d, want 1", p.callCount())
	}
}

func TestDispatchRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	p.sendFn = func(ctx context.Context, _ provider.Reminder) (*provider.Response, error) {
		if p.callCount() < 3 {
			return nil, &provider.DeliveryError{StatusCode: 503, Message: "upstream busy", Transient: true}
		}
		return &provider.Response{StatusCode: 200}, nil
	}
	d := newTestDispatcher(t, p)
	schedule := testSchedule("s1", "08:00")

	result := d.Dispatch(context.Background(), testOccurrence(), &schedule, testUser())

	if result.Outcome != domain.OutcomeDelivered {
		t.Fatalf("outcome = %s, want DELIVERED", result.Outcome)
	}
	if result.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", result.Attempts)
	}
}

func TestDispatchTransientFailureExhaustsRetries(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		sendFn: func(ctx context.Context, _ provider.Reminder) (*provider.Response, error) {
			return nil, &provider.DeliveryError{StatusCode: 503, Message: "upstream busy", Transient: true}
		},
	}
	d := newTestDispatcher(t, p)
	schedule := testSchedule("s1", "08:00")

	result := d.Dispatch(context.Background(), testOccurrence(), &schedule, testUser())

	if result.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %s, want FAILED", result.Outcome)
	}
	if result.Attempts != 3 {
		t.Fatalf("attempts = %d, want exactly 3", result.Attempts)
	}
	if p.callCount() != 3 {
		t.Fatalf("provider calls = %d, want exactly 3", p.callCount())
	}
	if result.Detail == "" {
		t.Fatal("failed result should carry the error detail")
	}
}

func TestDispatchPermanentFailureStopsImmediately(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		sendFn: func(ctx context.Context, _ provider.Reminder) (*provider.Response, error) {
			return nil, &provider.DeliveryError{StatusCode: 400, Message: "bad recipient", Transient: false}
		},
	}
	d := newTestDispatcher(t, p)
	schedule := testSchedule("s1", "08:00")

	result := d.Dispatch(context.Background(), testOccurrence(), &schedule, testUser())

	if result.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %s, want FAILED", result.Outcome)
	}
	if result.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1, permanent errors are not retried", result.Attempts)
	}
	if p.callCount() != 1 {
		t.Fatalf("provider calls = %d, want 1", p.callCount())
	}
}

func TestDispatchSuppression(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		user       *domain.User
		wantReason string
	}{
		{name: "user not found", user: nil, wantReason: "user_not_found"},
		{
			name:       "channel disabled",
			user:       &domain.User{ID: "u1", Name: "Ada", Target: "ada@example.com", Channel: domain.ChannelNone},
			wantReason: "channel_disabled",
		},
		{
			name:       "no delivery target",
			user:       &domain.User{ID: "u1", Name: "Ada", Target: "  ", Channel: domain.ChannelEmail},
			wantReason: "no_delivery_target",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := &fakeProvider{}
			d := newTestDispatcher(t, p)
			schedule := testSchedule("s1", "08:00")

			result := d.Dispatch(context.Background(), testOccurrence(), &schedule, tc.user)

			if result.Outcome != domain.OutcomeSuppressed {
				t.Fatalf("outcome = %s, want SUPPRESSED", result.Outcome)
			}
			if result.Attempts != 0 {
				t.Fatalf("attempts = %d, want 0", result.Attempts)
			}
			if result.Detail != tc.wantReason {
				t.Fatalf("detail = %q, want %q", result.Detail, tc.wantReason)
			}
			if p.callCount() != 0 {
				t.Fatalf("provider calls = %d, suppression must not reach the provider", p.callCount())
			}
		})
	}
}

func TestDispatchCanceledContextAbandonsRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeProvider{
		sendFn: func(ctx context.Context, _ provider.Reminder) (*provider.Response, error) {
			cancel()
			return nil, &provider.DeliveryError{StatusCode: 503, Message: "upstream busy", Transient: true}
		},
	}
	d := newTestDispatcher(t, p)
	schedule := testSchedule("s1", "08:00")

	result := d.Dispatch(ctx, testOccurrence(), &schedule, testUser())

	if result.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %s, want FAILED", result.Outcome)
	}
	if p.callCount() != 1 {
		t.Fatalf("provider calls = %d, want 1 after cancellation", p.callCount())
	}
}

func TestDispatchRateLimiterFailure(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	d := newTestDispatcher(t, p)
	d.rateLimiter = &fakeRateLimiter{
		waitFn: func(ctx context.Context, channel string) error {
			return fmt.Errorf("redis down")
		},
	}
	schedule := testSchedule("s1", "08:00")

	result := d.Dispatch(context.Background(), testOccurrence(), &schedule, testUser())

	if result.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %s, want FAILED", result.Outcome)
	}
	if p.callCount() != 0 {
		t.Fatalf("provider calls = %d, want 0 when the limiter fails", p.callCount())
	}
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	t.Parallel()

	if got := backoffDelay(1); got != 500*time.Millisecond {
		t.Fatalf("backoffDelay(1) = %s, want 500ms", got)
	}
	if got := backoffDelay(2); got != time.Second {
		t.Fatalf("backoffDelay(2) = %s, want 1s", got)
	}
	if got := backoffDelay(10); got != maxAttemptBackoff {
		t.Fatalf("backoffDelay(10) = %s, want cap %s", got, maxAttemptBackoff)
	}
}
