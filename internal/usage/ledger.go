// Package usage implements the atomic quota ledger: the single path through
// which an account's period usage is consumed.
package usage

import (
	"context"

	"github.com/rs/zerolog"

	"clipsheet/internal/domain"
	"clipsheet/internal/observability"
)

// Invalidator evicts cached account snapshots after durable mutations.
type Invalidator interface {
	Invalidate(ctx context.Context, id string)
}

// Ledger wraps the repository's row-locked check-and-increment with the cache
// invalidation and accounting every successful consume must trigger.
type Ledger struct {
	accounts domain.AccountRepository
	cache    Invalidator
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewLedger wires the ledger's dependencies.
func NewLedger(accounts domain.AccountRepository, cache Invalidator, logger zerolog.Logger, metrics *observability.Metrics) *Ledger {
	return &Ledger{accounts: accounts, cache: cache, logger: logger, metrics: metrics}
}

// TryConsume attempts to take one unit of quota for the account. Exactly one
// of three things happens: the counter advances by one and the cached snapshot
// is invalidated, the attempt is denied with the counter untouched, or an
// error is returned with the counter untouched. An error is never an implicit
// allow; callers surface it as an internal failure.
func (l *Ledger) TryConsume(ctx context.Context, accountID string) (domain.ConsumeResult, error) {
	result, err := l.accounts.TryConsume(ctx, accountID)
	if err != nil {
		l.count("error")
		l.logger.Error().Err(err).Str("account_id", accountID).Msg("quota consume failed")
		return domain.ConsumeResult{}, err
	}

	if !result.Allowed {
		l.count("denied")
		l.logger.Info().
			Str("account_id", accountID).
			Int("usage", result.NewUsage).
			Int("limit", result.EffectiveLimit).
			Msg("quota consume denied")
		return result, nil
	}

	// The increment is committed; the cached replica is now stale. Detach
	// from the caller's context so a client disconnect cannot skip the
	// eviction of an already-charged account.
	l.cache.Invalidate(context.WithoutCancel(ctx), accountID)

	l.count("allowed")
	return result, nil
}

func (l *Ledger) count(outcome string) {
	if l.metrics != nil {
		l.metrics.QuotaConsumes.WithLabelValues(outcome).Inc()
	}
}
