package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"clipsheet/internal/ratelimit"
)

// RateLimit enforces the named scope's fixed-window budget. Every response
// carries limit/remaining/reset headers; denials get 429 with a Retry-After
// hint and are never silently allowed.
func RateLimit(limiter ratelimit.Limiter, scope ratelimit.Scope, opts ...RateLimitOption) func(http.Handler) http.Handler {
	var cfg rateLimitOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := RateLimitIdentity(r.Context())
			decision := limiter.Allow(r.Context(), scope, identity)

			if decision.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}

			if !decision.Allowed {
				retryAfter := int(decision.RetryAfter(time.Now()).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests,
					fmt.Sprintf("rate limit exceeded, retry in %ds", retryAfter))
				return
			}

			if !cfg.refundOnSuccess {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status < http.StatusBadRequest {
				limiter.Refund(r.Context(), scope, identity)
			}
		})
	}
}

// RateLimitOption tweaks scope middleware behavior.
type RateLimitOption func(*rateLimitOptions)

type rateLimitOptions struct {
	refundOnSuccess bool
}

// RefundOnSuccess returns the consumed slot when the handler succeeds. Used
// on the auth scope so legitimate sign-ins do not eat the brute-force budget.
func RefundOnSuccess() RateLimitOption {
	return func(o *rateLimitOptions) { o.refundOnSuccess = true }
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
