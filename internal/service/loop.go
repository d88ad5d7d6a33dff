package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dosewatch/dosewatch/internal/clock"
	"github.com/dosewatch/dosewatch/internal/domain"
	"github.com/dosewatch/dosewatch/internal/observability"
	"github.com/dosewatch/dosewatch/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultScanInterval = time.Minute
	defaultConcurrency  = 8
	maxConcurrency      = 16
	storeTimeout        = 5 * time.Second
)

// ReminderLoop drives the minute cadence: on each tick it matches due
// occurrences, claims them through the idempotency guard, dispatches the
// survivors with bounded concurrency, and finalizes the audit record.
//
// One loop instance runs per process; Start enforces that. Cross-process
// mutual exclusion is not assumed here: the guard's atomic claim is what
// keeps concurrent deployments correct.
type ReminderLoop struct {
	schedules  repository.ScheduleRepository
	users      repository.UserRepository
	records    repository.DispatchRepository
	guard      *IdempotencyGuard
	dispatcher *Dispatcher
	clk        clock.Clock
	logger     *zap.Logger
	metrics    *observability.Metrics

	interval    time.Duration
	concurrency int

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewReminderLoop(
	schedules repository.ScheduleRepository,
	users repository.UserRepository,
	records repository.DispatchRepository,
	guard *IdempotencyGuard,
	dispatcher *Dispatcher,
	clk clock.Clock,
	interval time.Duration,
	concurrency int,
	logger *zap.Logger,
) (*ReminderLoop, error) {
	if schedules == nil {
		return nil, fmt.Errorf("schedule repository is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if records == nil {
		return nil, fmt.Errorf("dispatch repository is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if clk == nil {
		clk = clock.System()
	}
	if interval <= 0 {
		interval = defaultScanInterval
	}
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReminderLoop{
		schedules:   schedules,
		users:       users,
		records:     records,
		guard:       guard,
		dispatcher:  dispatcher,
		clk:         clk,
		logger:      logger,
		interval:    interval,
		concurrency: concurrency,
		stopCh:      make(chan struct{}),
	}, nil
}

func (l *ReminderLoop) SetMetrics(metrics *observability.Metrics) {
	if l == nil {
		return
	}
	l.metrics = metrics
}

// Start blocks until Stop is called or ctx is canceled. The first scan runs
// immediately so a restart catches the current minute without waiting for
// the ticker edge; past minutes are not replayed.
//
// Stop lets an in-flight tick drain. Canceling ctx additionally aborts
// in-flight delivery retries, recording whatever outcome is known.
func (l *ReminderLoop) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return fmt.Errorf("reminder loop already started")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := l.tick(ctx); err != nil && ctx.Err() == nil {
		l.logger.Error("reminder loop initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.stopCh:
			return nil
		case <-ticker.C:
			if err := l.tick(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				l.logger.Error("reminder loop tick failed", zap.Error(err))
			}
		}
	}
}

// Stop halts future ticks. A tick already in progress runs to completion.
func (l *ReminderLoop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

func (l *ReminderLoop) tick(ctx context.Context) error {
	now := l.clk.Now()
	today := domain.DateAt(now)
	minute := domain.TimeOfDayAt(now)
	tickStart := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.ObserveTickDuration(time.Since(tickStart))
		}
	}()

	queryCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	schedules, err := l.schedules.FindActiveOn(queryCtx, today)
	cancel()
	if err != nil {
		if l.metrics != nil {
			l.metrics.IncStoreError("find_active_schedules")
		}
		return fmt.Errorf("failed to fetch active schedules: %w", err)
	}

	due := MatchDue(today, minute, schedules)
	if l.metrics != nil {
		l.metrics.AddOccurrencesMatched(len(due))
	}
	if len(due) == 0 {
		return nil
	}

	l.logger.Info("tick matched due occurrences",
		zap.String("date", today.String()),
		zap.String("time", minute.String()),
		zap.Int("count", len(due)),
	)

	byID := make(map[string]*domain.Schedule, len(schedules))
	for i := range schedules {
		byID[schedules[i].ID] = &schedules[i]
	}

	// Each occurrence owns an independent key and target, so they can run
	// concurrently. Per-occurrence failures are logged, never propagated:
	// one bad occurrence must not starve its siblings or kill the loop.
	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for _, occ := range due {
		schedule := byID[occ.ScheduleID]
		g.Go(func() error {
			l.process(ctx, occ, schedule)
			return nil
		})
	}
	_ = g.Wait()

	return nil
}

func (l *ReminderLoop) process(ctx context.Context, occ domain.Occurrence, schedule *domain.Schedule) {
	user, err := l.lookupUser(ctx, schedule.OwnerID)
	if err != nil {
		if l.metrics != nil {
			l.metrics.IncStoreError("find_user")
		}
		l.logger.Error("user lookup failed, skipping occurrence",
			zap.String("occurrence", occ.Key()),
			zap.Error(err),
		)
		return
	}

	recipient := ""
	channel := domain.ChannelNone
	if user != nil {
		recipient = user.Target
		channel = user.Channel
	}

	claimCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	result, err := l.guard.TryClaim(claimCtx, occ, schedule.OwnerID, recipient, channel)
	cancel()
	if err != nil {
		if l.metrics != nil {
			l.metrics.IncStoreError("claim")
		}
		l.logger.Error("occurrence claim failed closed",
			zap.String("occurrence", occ.Key()),
			zap.Error(err),
		)
		return
	}

	switch result {
	case ClaimDuplicate:
		if l.metrics != nil {
			l.metrics.IncClaimConflict()
		}
		l.logger.Debug("occurrence already claimed",
			zap.String("occurrence", occ.Key()),
		)
		return
	case ClaimAmbiguous:
		if l.metrics != nil {
			l.metrics.IncClaimAmbiguous()
		}
		return
	}

	dispatchResult := l.dispatcher.Dispatch(ctx, occ, schedule, user)

	// Record the outcome even when shutdown canceled the parent context;
	// a claimed-but-unrecorded occurrence would be invisible to operators.
	finalizeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	err = l.records.Finalize(
		finalizeCtx,
		occ,
		dispatchResult.Outcome,
		dispatchResult.Attempts,
		dispatchResult.Detail,
		l.clk.Now().UTC(),
	)
	if err != nil {
		if l.metrics != nil {
			l.metrics.IncStoreError("finalize")
		}
		l.logger.Error("failed to finalize dispatch record",
			zap.String("occurrence", occ.Key()),
			zap.String("outcome", dispatchResult.Outcome.String()),
			zap.Error(err),
		)
		return
	}

	l.logger.Info("occurrence dispatched",
		zap.String("occurrence", occ.Key()),
		zap.String("outcome", dispatchResult.Outcome.String()),
		zap.Int("attempts", dispatchResult.Attempts),
	)
}

func (l *ReminderLoop) lookupUser(ctx context.Context, ownerID string) (*domain.User, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := l.users.GetByID(lookupCtx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Suppression path: the occurrence is still claimed and audited.
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
