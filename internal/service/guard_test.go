package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dosewatch/dosewatch/internal/domain"
	"go.uber.org/zap"
)

func testOccurrence() domain.Occurrence {
	return domain.Occurrence{ScheduleID: "s1", Date: "2024-01-15", Time: "08:00"}
}

func newTestGuard(t *testing.T, records *fakeDispatchRepo) *IdempotencyGuard {
	t.Helper()

	guard, err := NewIdempotencyGuard(records, zap.NewNop())
	if err != nil {
		t.Fatalf("NewIdempotencyGuard() error = %v", err)
	}
	return guard
}

func TestTryClaimAccepted(t *testing.T) {
	t.Parallel()

	records := newFakeDispatchRepo()
	guard := newTestGuard(t, records)
	occ := testOccurrence()

	result, err := guard.TryClaim(context.Background(), occ, "u1", "ada@example.com", domain.ChannelEmail)
	if err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}
	if result != ClaimAccepted {
		t.Fatalf("TryClaim() = %s, want accepted", result)
	}

	record := records.record(occ)
	if record == nil {
		t.Fatal("accepted claim should leave a record behind")
	}
	if record.Outcome != domain.OutcomePending {
		t.Fatalf("claim record outcome = %s, want PENDING", record.Outcome)
	}
	if record.OwnerID != "u1" || record.Recipient != "ada@example.com" {
		t.Fatalf("claim record target = (%s, %s), want (u1, ada@example.com)", record.OwnerID, record.Recipient)
	}
}

func TestTryClaimDuplicate(t *testing.T) {
	t.Parallel()

	records := newFakeDispatchRepo()
	guard := newTestGuard(t, records)
	occ := testOccurrence()

	if _, err := guard.TryClaim(context.Background(), occ, "u1", "ada@example.com", domain.ChannelEmail); err != nil {
		t.Fatalf("first TryClaim() error = %v", err)
	}

	result, err := guard.TryClaim(context.Background(), occ, "u1", "ada@example.com", domain.ChannelEmail)
	if err != nil {
		t.Fatalf("second TryClaim() error = %v", err)
	}
	if result != ClaimDuplicate {
		t.Fatalf("second TryClaim() = %s, want duplicate", result)
	}
	if got := records.recordCount(); got != 1 {
		t.Fatalf("record count = %d, want 1", got)
	}
}

func TestTryClaimConcurrentClaimersOneWinner(t *testing.T) {
	t.Parallel()

	records := newFakeDispatchRepo()
	guard := newTestGuard(t, records)
	occ := testOccurrence()

	const claimers = 16
	results := make(chan ClaimResult, claimers)

	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := guard.TryClaim(context.Background(), occ, "u1", "ada@example.com", domain.ChannelEmail)
			if err != nil {
				t.Errorf("TryClaim() error = %v", err)
				return
			}
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for result := range results {
		if result == ClaimAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted claims = %d, want exactly 1", accepted)
	}
	if got := records.recordCount(); got != 1 {
		t.Fatalf("record count = %d, want 1", got)
	}
}

func TestTryClaimAmbiguous(t *testing.T) {
	t.Parallel()

	occ := testOccurrence()
	records := newFakeDispatchRepo()
	records.insertFn = func(ctx context.Context, r *domain.DispatchRecord) error {
		return fmt.Errorf("write timeout")
	}
	records.getFn = func(ctx context.Context, o domain.Occurrence) (*domain.DispatchRecord, error) {
		return &domain.DispatchRecord{ScheduleID: o.ScheduleID, DueDate: o.Date, DueTime: o.Time}, nil
	}
	guard := newTestGuard(t, records)

	result, err := guard.TryClaim(context.Background(), occ, "u1", "ada@example.com", domain.ChannelEmail)
	if err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}
	if result != ClaimAmbiguous {
		t.Fatalf("TryClaim() = %s, want ambiguous", result)
	}
}

func TestTryClaimFailsClosedOnStoreError(t *testing.T) {
	t.Parallel()

	records := newFakeDispatchRepo()
	records.insertFn = func(ctx context.Context, r *domain.DispatchRecord) error {
		return fmt.Errorf("connection refused")
	}
	records.getFn = func(ctx context.Context, o domain.Occurrence) (*domain.DispatchRecord, error) {
		return nil, fmt.Errorf("connection refused")
	}
	guard := newTestGuard(t, records)

	result, err := guard.TryClaim(context.Background(), testOccurrence(), "u1", "ada@example.com", domain.ChannelEmail)
	if err == nil {
		t.Fatal("TryClaim() expected error when the store is unreachable")
	}
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("TryClaim() error = %v, want ErrStoreUnavailable", err)
	}
	if result == ClaimAccepted {
		t.Fatal("a failed claim must never be accepted")
	}
}

func TestTryClaimRejectsInvalidOccurrence(t *testing.T) {
	t.Parallel()

	guard := newTestGuard(t, newFakeDispatchRepo())

	occ := domain.Occurrence{ScheduleID: "", Date: "2024-01-15", Time: "08:00"}
	if _, err := guard.TryClaim(context.Background(), occ, "u1", "ada@example.com", domain.ChannelEmail); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("TryClaim() error = %v, want ErrValidation", err)
	}
}

func TestNewIdempotencyGuardRequiresRepository(t *testing.T) {
	t.Parallel()

	if _, err := NewIdempotencyGuard(nil, zap.NewNop()); err == nil {
		t.Fatal("NewIdempotencyGuard(nil) expected error")
	}
}
