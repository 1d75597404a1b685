package infra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewRedisClient connects to the shared cache/counter store. The store is an
// availability dependency, not a correctness one: when cfg.RedisAddr is empty
// or the initial ping fails, nil is returned and every consumer runs in its
// degraded mode (cache misses, per-process rate-limit windows).
func NewRedisClient(ctx context.Context, cfg *Config, logger zerolog.Logger) *redis.Client {
	if cfg == nil || cfg.RedisAddr == "" {
		logger.Warn().Msg("redis not configured, shared cache and distributed rate limiting disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		// Keep the client: consumers probe per call and recover if the store
		// comes back.
		logger.Warn().Err(err).Msg("redis unreachable at startup, continuing degraded")
	}

	return client
}
