// Package cache provides the read-through entity cache for account records.
// Entries are read replicas only: every durable mutation must invalidate its
// entry, and the cache may be evicted or unavailable at any time without
// affecting correctness.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"clipsheet/internal/domain"
	"clipsheet/internal/observability"
)

const keyPrefix = "account:"

// AccountCache caches account snapshots in the shared store with a fixed TTL.
// A nil client is a valid configuration: every Get misses and Put/Invalidate
// are no-ops, so all reads fall through to Postgres.
type AccountCache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewAccountCache constructs the cache. ttl bounds staleness for entries that
// miss an invalidation; it must stay short enough that a lost invalidation is
// an inconvenience, not an incident.
func NewAccountCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger, metrics *observability.Metrics) *AccountCache {
	return &AccountCache{client: client, ttl: ttl, logger: logger, metrics: metrics}
}

// Get returns the cached account and true on a hit. Store errors and decode
// failures are reported as misses so the caller falls through to Postgres.
func (c *AccountCache) Get(ctx context.Context, id string) (*domain.Account, bool) {
	if c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("account_id", id).Msg("account cache get failed")
		}
		c.miss()
		return nil, false
	}

	var account domain.Account
	if err := json.Unmarshal(raw, &account); err != nil {
		c.logger.Warn().Err(err).Str("account_id", id).Msg("account cache entry corrupt, dropping")
		c.dropCorrupt(ctx, id)
		c.miss()
		return nil, false
	}

	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
	return &account, true
}

// Put stores a snapshot with the configured TTL, overwriting any existing
// entry. Failures are logged and swallowed: the cache is best-effort.
func (c *AccountCache) Put(ctx context.Context, account *domain.Account) {
	if c.client == nil || account == nil {
		return
	}

	raw, err := json.Marshal(account)
	if err != nil {
		c.logger.Error().Err(err).Str("account_id", account.ID).Msg("account cache encode failed")
		return
	}
	if err := c.client.Set(ctx, keyPrefix+account.ID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("account_id", account.ID).Msg("account cache put failed")
	}
}

// Invalidate removes the entry for id. Absent entries are a no-op. A failed
// invalidation never fails the caller's request, but it is the single biggest
// staleness risk in this design, so it is always logged; the TTL on Put is
// the backstop.
func (c *AccountCache) Invalidate(ctx context.Context, id string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		c.logger.Error().Err(err).Str("account_id", id).Msg("account cache invalidation failed, entry expires by TTL")
	}
}

// Available reports shared-store reachability for health checks.
func (c *AccountCache) Available(ctx context.Context) bool {
	if c.client == nil {
		return false
	}
	return c.client.Ping(ctx).Err() == nil
}

func (c *AccountCache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}

func (c *AccountCache) dropCorrupt(ctx context.Context, id string) {
	if err := c.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		c.logger.Warn().Err(err).Str("account_id", id).Msg("account cache corrupt entry delete failed")
	}
}
