package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dosewatch/dosewatch/internal/domain"
	"github.com/dosewatch/dosewatch/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClaimResult is the outcome of an occurrence claim attempt.
type ClaimResult int

const (
	// ClaimAccepted authorizes exactly one dispatch attempt sequence.
	ClaimAccepted ClaimResult = iota
	// ClaimDuplicate means another tick or process already claimed the
	// occurrence; skip it.
	ClaimDuplicate
	// ClaimAmbiguous means the insert errored but a record for the key is
	// visible, so the claim cannot be told apart from a prior success.
	// Treated as a duplicate, surfaced separately for operator review.
	ClaimAmbiguous
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimAccepted:
		return "accepted"
	case ClaimDuplicate:
		return "duplicate"
	case ClaimAmbiguous:
		return "ambiguous"
	}
	return "unknown"
}

// IdempotencyGuard reserves occurrences for dispatch. It is the mechanism
// that keeps "at most one notification per occurrence" true across duplicate
// ticks, restarts, and clock corrections: the claim is an insert-if-absent
// against the dispatch record store's unique occurrence index, so two racing
// callers can never both be accepted.
type IdempotencyGuard struct {
	records repository.DispatchRepository
	logger  *zap.Logger
	newID   func() string
}

func NewIdempotencyGuard(records repository.DispatchRepository, logger *zap.Logger) (*IdempotencyGuard, error) {
	if records == nil {
		return nil, fmt.Errorf("dispatch repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &IdempotencyGuard{
		records: records,
		logger:  logger,
		newID:   uuid.NewString,
	}, nil
}

// TryClaim inserts a PENDING dispatch record for the occurrence. When the
// store is unreachable the claim fails closed: the occurrence is skipped and
// the error surfaces operationally, preferring a missed reminder over a
// possible duplicate.
func (g *IdempotencyGuard) TryClaim(
	ctx context.Context,
	occ domain.Occurrence,
	ownerID string,
	recipient string,
	channel domain.Channel,
) (ClaimResult, error) {
	if err := occ.Validate(); err != nil {
		return ClaimDuplicate, err
	}

	record := &domain.DispatchRecord{
		ID:         g.newID(),
		ScheduleID: occ.ScheduleID,
		DueDate:    occ.Date,
		DueTime:    occ.Time,
		OwnerID:    ownerID,
		Recipient:  recipient,
		Channel:    channel,
		Outcome:    domain.OutcomePending,
	}

	err := g.records.Insert(ctx, record)
	if err == nil {
		return ClaimAccepted, nil
	}
	if errors.Is(err, domain.ErrDuplicateOccurrence) {
		return ClaimDuplicate, nil
	}

	// The insert failed for another reason. If a record for the key is
	// visible we cannot tell our failed insert apart from a prior claim.
	existing, lookupErr := g.records.GetByOccurrence(ctx, occ)
	if lookupErr == nil && existing != nil {
		g.logger.Warn("ambiguous claim result, treating as already claimed",
			zap.String("occurrence", occ.Key()),
			zap.Error(err),
		)
		return ClaimAmbiguous, nil
	}

	return ClaimDuplicate, fmt.Errorf("%w: claim failed for %s: %v", domain.ErrStoreUnavailable, occ.Key(), err)
}
