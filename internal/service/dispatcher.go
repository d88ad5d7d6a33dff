package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dosewatch/dosewatch/internal/domain"
	"github.com/dosewatch/dosewatch/internal/observability"
	"github.com/dosewatch/dosewatch/internal/provider"
	"github.com/dosewatch/dosewatch/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	attemptTimeout     = 10 * time.Second
	baseAttemptBackoff = 500 * time.Millisecond
	maxAttemptBackoff  = 5 * time.Second
)

// DispatchResult is the terminal outcome of one dispatch attempt sequence.
type DispatchResult struct {
	Outcome  domain.Outcome
	Attempts int
	Detail   string
}

// Dispatcher delivers one claimed occurrence. Retries stay inside the
// current tick: transient failures are retried with exponential backoff up
// to the attempt limit, permanent failures stop immediately, and a user
// without a usable target is suppressed before any delivery call.
type Dispatcher struct {
	provider    provider.Provider
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	maxAttempts int
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(
	deliveryProvider provider.Provider,
	rateLimiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if deliveryProvider == nil {
		return nil, fmt.Errorf("delivery provider is required")
	}
	if rateLimiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		provider:    deliveryProvider,
		rateLimiter: rateLimiter,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
		sleep:       sleepWithContext,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Dispatch runs the full attempt sequence for one occurrence and returns the
// terminal outcome. It never returns an error: every path ends in a result
// the audit log can record.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	occ domain.Occurrence,
	schedule *domain.Schedule,
	user *domain.User,
) DispatchResult {
	if ctx == nil {
		ctx = context.Background()
	}

	if reason, suppressed := suppressionReason(user); suppressed {
		d.logger.Info("reminder suppressed",
			zap.String("occurrence", occ.Key()),
			zap.String("reason", reason),
		)
		if d.metrics != nil {
			d.metrics.IncReminderSuppressed(reason)
		}
		return DispatchResult{
			Outcome:  domain.OutcomeSuppressed,
			Attempts: 0,
			Detail:   reason,
		}
	}

	channelName := strings.ToLower(user.Channel.String())
	if d.metrics != nil {
		d.metrics.IncDispatchInFlight(channelName)
		defer d.metrics.DecDispatchInFlight(channelName)
	}

	reminder := buildReminder(occ, schedule, user)

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err := d.rateLimiter.Wait(ctx, channelName); err != nil {
			return d.failed(occ, channelName, attempt-1, fmt.Errorf("rate limiter wait failed: %w", err))
		}

		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		sendStart := d.now()
		_, sendErr := d.provider.Send(attemptCtx, reminder)
		cancel()
		if d.metrics != nil {
			d.metrics.ObserveDeliverySendDuration(channelName, d.now().Sub(sendStart))
		}

		if sendErr == nil {
			if d.metrics != nil {
				d.metrics.IncReminderDelivered(channelName)
			}
			return DispatchResult{
				Outcome:  domain.OutcomeDelivered,
				Attempts: attempt,
			}
		}

		lastErr = sendErr
		if !provider.IsTransient(sendErr) {
			return d.failed(occ, channelName, attempt, sendErr)
		}
		if attempt == d.maxAttempts {
			break
		}

		// Shutdown abandons remaining retries; the outcome known so far
		// is Failed.
		if ctx.Err() != nil {
			return d.failed(occ, channelName, attempt, sendErr)
		}
		if err := d.sleep(ctx, backoffDelay(attempt)); err != nil {
			return d.failed(occ, channelName, attempt, sendErr)
		}
	}

	return d.failed(occ, channelName, d.maxAttempts, lastErr)
}

func (d *Dispatcher) failed(occ domain.Occurrence, channel string, attempts int, err error) DispatchResult {
	detail := "delivery failed"
	if err != nil {
		detail = err.Error()
	}

	d.logger.Warn("reminder dispatch failed",
		zap.String("occurrence", occ.Key()),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
	if d.metrics != nil {
		reason := "permanent_error"
		if provider.IsTransient(err) {
			reason = "retry_exhausted"
		}
		d.metrics.IncReminderFailed(channel, reason)
	}

	return DispatchResult{
		Outcome:  domain.OutcomeFailed,
		Attempts: attempts,
		Detail:   detail,
	}
}

func suppressionReason(user *domain.User) (string, bool) {
	switch {
	case user == nil:
		return "user_not_found", true
	case user.Channel == domain.ChannelNone:
		return "channel_disabled", true
	case strings.TrimSpace(user.Target) == "":
		return "no_delivery_target", true
	case !user.Channel.IsValid():
		return "invalid_channel", true
	}
	return "", false
}

func buildReminder(occ domain.Occurrence, schedule *domain.Schedule, user *domain.User) provider.Reminder {
	return provider.Reminder{
		To:      user.Target,
		Channel: user.Channel,
		Subject: fmt.Sprintf("Medication reminder: %s", schedule.Name),
		Body: fmt.Sprintf("Time to take %s (%s), scheduled for %s.",
			schedule.Name, schedule.Dosage, occ.Time),
	}
}

func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := baseAttemptBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxAttemptBackoff {
			return maxAttemptBackoff
		}
	}
	return delay
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
