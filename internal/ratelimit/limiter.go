// Package ratelimit enforces the per-identity and global daily quotas
// over a sliding window. Both limits are checked and the event recorded
// in one atomic step, so concurrent requests cannot slip past the cap.
package ratelimit

import (
	"context"
	"time"

	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/errors"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/common/metrics"
)

// Decision is the outcome of one quota reservation.
type Decision struct {
	Allowed   bool
	Scope     string // "identity" or "global" when rejected
	Remaining int
	ResetAt   time.Time
}

// Store reserves one request slot for identity at time now, enforcing
// both limits atomically.
type Store interface {
	Reserve(ctx context.Context, identity string, now time.Time) (Decision, error)
}

type Limiter struct {
	store  Store
	clock  func() time.Time
	logger logger.Logger
}

func New(store Store, log logger.Logger) *Limiter {
	return &Limiter{store: store, clock: time.Now, logger: log}
}

// NewWithClock is the test constructor; the clock drives window expiry.
func NewWithClock(store Store, clock func() time.Time, log logger.Logger) *Limiter {
	return &Limiter{store: store, clock: clock, logger: log}
}

// Allow reserves a slot for identity. It returns a QuotaExceededError
// when the identity is over its daily limit, a CapacityExceededError
// when the whole engine is, and nil when the request may proceed.
//
// A store failure fails open: throttling protects upstream providers,
// it is not worth failing user requests over.
func (l *Limiter) Allow(ctx context.Context, identity string) error {
	decision, err := l.store.Reserve(ctx, identity, l.clock())
	if err != nil {
		l.logger.Warn("rate limit store failed, allowing request", map[string]interface{}{
			"identity": identity,
			"error":    err.Error(),
		})
		return nil
	}

	if decision.Allowed {
		return nil
	}

	metrics.QuotaRejections.WithLabelValues(decision.Scope).Inc()

	if decision.Scope == "global" {
		return &errors.CapacityExceededError{ResetAt: decision.ResetAt}
	}
	return &errors.QuotaExceededError{
		Identity:  identity,
		Remaining: 0,
		ResetAt:   decision.ResetAt,
	}
}

// WindowFromConfig converts the configured window hours to a duration.
func WindowFromConfig(cfg config.QuotaConfig) time.Duration {
	return time.Duration(cfg.WindowHours) * time.Hour
}
