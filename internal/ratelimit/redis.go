package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindows keeps fixed-window counters in the shared store so all server
// processes see the same count for the same (scope, identity, bucket). Keys
// embed the bucket index, so correctness does not depend on TTL; the expiry
// only reclaims finished windows.
type RedisWindows struct {
	client *redis.Client
	rules  map[Scope]Rule
}

// NewRedisWindows builds a store-backed limiter for the given per-scope rules.
func NewRedisWindows(client *redis.Client, rules map[Scope]Rule) *RedisWindows {
	return &RedisWindows{client: client, rules: rules}
}

// Allow increments the current window's counter and compares it to the rule.
// The increment happens unconditionally; a denied request has still consumed
// its slot, which keeps the operation a single round trip.
func (r *RedisWindows) Allow(ctx context.Context, scope Scope, identity string) (Decision, error) {
	rule, ok := r.rules[scope]
	if !ok || rule.Max <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := time.Now()
	start := windowStart(now, rule.Window)
	key := windowKey(scope, identity, start)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		// First hit of the window owns the expiry. Keep it one window past
		// the boundary so a Refund near the edge still finds the key.
		if err := r.client.Expire(ctx, key, 2*rule.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	return decide(rule, int(count), start), nil
}

// Refund decrements the current window's counter, flooring at zero.
func (r *RedisWindows) Refund(ctx context.Context, scope Scope, identity string) error {
	rule, ok := r.rules[scope]
	if !ok || rule.Max <= 0 {
		return nil
	}

	key := windowKey(scope, identity, windowStart(time.Now(), rule.Window))
	count, err := r.client.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("ratelimit decr: %w", err)
	}
	if count < 0 {
		// Window rolled over between Allow and Refund; drop the stray key.
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("ratelimit refund cleanup: %w", err)
		}
	}
	return nil
}

func windowKey(scope Scope, identity string, start time.Time) string {
	return fmt.Sprintf("rl:%s:%s:%d", scope, identity, start.UnixMilli())
}

func decide(rule Rule, count int, start time.Time) Decision {
	d := Decision{
		Allowed: count <= rule.Max,
		Limit:   rule.Max,
		ResetAt: start.Add(rule.Window),
	}
	if remaining := rule.Max - count; remaining > 0 {
		d.Remaining = remaining
	}
	return d
}
