package middleware

import (
	"context"
	"errors"
	"net/http"

	"clipsheet/internal/domain"
)

const accountKey contextKey = "account"

// AccountSource is the durable-store lookup behind the cache.
type AccountSource interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

// AccountCache is the read-through cache the hydrator consults first.
type AccountCache interface {
	Get(ctx context.Context, id string) (*domain.Account, bool)
	Put(ctx context.Context, account *domain.Account)
}

// HydrateProfile attaches the caller's account to the context: cache first,
// Postgres on miss (then re-primed). A valid credential whose backing row is
// gone is a data-integrity condition, reported as 404 so the client prompts
// re-provisioning instead of another sign-in.
func HydrateProfile(cache AccountCache, accounts AccountSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := AccountIDFromContext(r.Context())
			if accountID == "" {
				writeError(w, http.StatusUnauthorized, "no authenticated account")
				return
			}

			account, ok := cache.Get(r.Context(), accountID)
			if !ok {
				var err error
				account, err = accounts.GetByID(r.Context(), accountID)
				if err != nil {
					if errors.Is(err, domain.ErrNotFound) {
						writeError(w, http.StatusNotFound, "account profile missing")
						return
					}
					writeError(w, http.StatusInternalServerError, "internal error")
					return
				}
				cache.Put(r.Context(), account)
			}

			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountFromContext returns the hydrated account, or nil outside the
// authenticated pipeline.
func AccountFromContext(ctx context.Context) *domain.Account {
	if v, ok := ctx.Value(accountKey).(*domain.Account); ok {
		return v
	}
	return nil
}

// ContextWithAccount attaches a hydrated account, mainly for tests.
func ContextWithAccount(ctx context.Context, account *domain.Account) context.Context {
	if account == nil {
		return ctx
	}
	ctx = ContextWithAccountID(ctx, account.ID)
	return context.WithValue(ctx, accountKey, account)
}
