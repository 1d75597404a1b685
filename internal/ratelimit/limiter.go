// Package ratelimit bounds request rates per identity per named scope using
// fixed windows. Windows live in the shared store so every process observes
// the same counts; when the store is unreachable the limiter falls back to
// per-process counters, trading strictness for availability.
package ratelimit

import (
	"context"
	"time"
)

// Scope names an independent rate-limit budget. Scopes never share counters.
type Scope string

const (
	ScopeGeneral Scope = "general"
	ScopeAuth    Scope = "auth"
	ScopeExtract Scope = "extract"
	ScopeExport  Scope = "export"
)

// Rule is a fixed-window limit: at most Max hits per Window.
type Rule struct {
	Max    int
	Window time.Duration
}

// Decision reports the outcome of one check-and-increment.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the wait the caller should be told about when denied.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// Limiter is the check-and-increment contract used by the middleware.
// Implementations must be safe for concurrent use and must never block beyond
// the store's configured timeouts.
type Limiter interface {
	// Allow counts a hit for (scope, identity) in the current window and
	// reports whether it stayed within the scope's rule.
	Allow(ctx context.Context, scope Scope, identity string) Decision

	// Refund undoes one previously counted hit in the current window. Used to
	// exempt successful authentications from the auth scope's budget.
	Refund(ctx context.Context, scope Scope, identity string)
}

// windowStart aligns now to the fixed window boundary.
func windowStart(now time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return now
	}
	return now.Truncate(window)
}
