package ratelimit

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"clipsheet/internal/observability"
)

// Failover serves decisions from the shared store when it is reachable and
// from per-process memory when it is not. The degradation is advertised via
// Degraded for the health endpoint and the fallback gauge.
type Failover struct {
	shared  *RedisWindows
	local   *MemoryWindows
	logger  zerolog.Logger
	metrics *observability.Metrics

	degraded atomic.Bool
}

// NewFailover composes the two limiters. shared may be nil when no store is
// configured; the limiter then runs permanently degraded.
func NewFailover(shared *RedisWindows, local *MemoryWindows, logger zerolog.Logger, metrics *observability.Metrics) *Failover {
	f := &Failover{shared: shared, local: local, logger: logger, metrics: metrics}
	if shared == nil {
		f.markDegraded(true)
	}
	return f
}

// Allow implements Limiter.
func (f *Failover) Allow(ctx context.Context, scope Scope, identity string) Decision {
	d, ok := f.tryShared(ctx, scope, identity)
	if !ok {
		d = f.local.Allow(ctx, scope, identity)
	}
	f.count(scope, d.Allowed)
	return d
}

// Refund implements Limiter. The refund goes to whichever side is currently
// serving; a refund lost across a failover widens the budget by one, which is
// within the fallback's stated approximation.
func (f *Failover) Refund(ctx context.Context, scope Scope, identity string) {
	if f.shared != nil && !f.degraded.Load() {
		if err := f.shared.Refund(ctx, scope, identity); err == nil {
			return
		}
	}
	f.local.Refund(ctx, scope, identity)
}

// Degraded reports whether decisions are currently served from process-local
// counters.
func (f *Failover) Degraded() bool {
	return f.degraded.Load()
}

func (f *Failover) tryShared(ctx context.Context, scope Scope, identity string) (Decision, bool) {
	if f.shared == nil {
		return Decision{}, false
	}
	d, err := f.shared.Allow(ctx, scope, identity)
	if err != nil {
		if f.degraded.CompareAndSwap(false, true) {
			f.logger.Warn().Err(err).Msg("shared rate-limit store unreachable, serving from local windows")
			f.setGauge(1)
		}
		return Decision{}, false
	}
	if f.degraded.CompareAndSwap(true, false) {
		f.logger.Info().Msg("shared rate-limit store recovered")
		f.setGauge(0)
	}
	return d, true
}

func (f *Failover) markDegraded(v bool) {
	f.degraded.Store(v)
	if v {
		f.setGauge(1)
	} else {
		f.setGauge(0)
	}
}

func (f *Failover) setGauge(v float64) {
	if f.metrics != nil {
		f.metrics.LimiterFallback.Set(v)
	}
}

func (f *Failover) count(scope Scope, allowed bool) {
	if f.metrics == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	f.metrics.RateLimitDecisions.WithLabelValues(string(scope), outcome).Inc()
}

var _ Limiter = (*Failover)(nil)
