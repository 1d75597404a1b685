package domain

import (
	"context"
	"time"
)

// ConsumeResult is the outcome of one atomic quota consumption attempt.
// When the account does not exist, Allowed is false and the remaining fields
// are zero values; callers cannot distinguish that from an exhausted quota in
// a single trip, which is intentional.
type ConsumeResult struct {
	Allowed            bool
	NewUsage           int
	EffectiveLimit     int
	Plan               Plan
	SubscriptionStatus SubscriptionStatus
}

// AccountRepository defines durable-store access for accounts. All mutations
// of the usage counter go through TryConsume or the explicit administrative
// updates below; application code never read-modify-writes the row.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// TryConsume atomically increments usage_this_period by one if and only
	// if it is below the effective limit, under an exclusive row lock. A
	// missing row yields a zero-valued denial, not an error.
	TryConsume(ctx context.Context, id string) (ConsumeResult, error)

	UpdatePlan(ctx context.Context, id string, plan Plan, periodLimit int) error
	SetSubscriptionStatus(ctx context.Context, id string, status SubscriptionStatus) error
	ResetPeriod(ctx context.Context, id string, anchor time.Time) error
	UpdateSettings(ctx context.Context, id string, sheetID string) error
	UpdateSheetsToken(ctx context.Context, id string, token string) error
	Delete(ctx context.Context, id string) error
}
