package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipsheet/internal/domain"
)

const accountColumns = `id, email, plan, usage_this_period, period_limit, subscription_status, period_anchor, sheet_id, sheets_token, created_at, updated_at`

// AccountRepositoryPG implements domain.AccountRepository backed by PostgreSQL.
type AccountRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepositoryPG.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepositoryPG {
	return &AccountRepositoryPG{pool: pool}
}

// Create inserts a new account with zero usage for the current period.
func (r *AccountRepositoryPG) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	query := `
INSERT INTO accounts (id, email, plan, usage_this_period, period_limit, subscription_status, period_anchor, sheet_id, sheets_token)
VALUES ($1, $2, $3, 0, $4, $5, NOW(), '', '')
ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
RETURNING ` + accountColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		account.ID,
		account.Email,
		account.Plan,
		account.PeriodLimit,
		account.SubscriptionStatus,
	)
	return scanAccount(row)
}

// GetByID fetches an account by id.
func (r *AccountRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByEmail fetches an account by email.
func (r *AccountRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

// TryConsume performs the check-and-increment inside one transaction holding
// an exclusive lock on the account row, so concurrent attempts on the same
// account serialize instead of racing the read against the write. lock_timeout
// bounds the wait; hitting it fails the attempt without a partial increment.
func (r *AccountRepositoryPG) TryConsume(ctx context.Context, id string) (domain.ConsumeResult, error) {
	var result domain.ConsumeResult

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin consume tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '2s'`); err != nil {
		return result, fmt.Errorf("set lock timeout: %w", err)
	}

	var (
		usage       int
		periodLimit int
		plan        domain.Plan
		status      domain.SubscriptionStatus
	)
	row := tx.QueryRow(ctx, `
SELECT usage_this_period, period_limit, plan, subscription_status
FROM accounts
WHERE id = $1
FOR UPDATE;`, id)
	if err := row.Scan(&usage, &periodLimit, &plan, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unknown account reads as a denial, not an error.
			return result, nil
		}
		return result, fmt.Errorf("lock account row: %w", err)
	}

	effective := domain.EffectiveLimit(periodLimit, status)
	result.EffectiveLimit = effective
	result.Plan = plan
	result.SubscriptionStatus = status

	if usage >= effective {
		result.NewUsage = usage
		return result, nil
	}

	if _, err := tx.Exec(ctx, `
UPDATE accounts
SET usage_this_period = usage_this_period + 1, updated_at = NOW()
WHERE id = $1;`, id); err != nil {
		return result, fmt.Errorf("increment usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ConsumeResult{EffectiveLimit: effective, Plan: plan, SubscriptionStatus: status},
			fmt.Errorf("commit consume tx: %w", err)
	}

	result.Allowed = true
	result.NewUsage = usage + 1
	return result, nil
}

// UpdatePlan changes the plan and its nominal period limit.
func (r *AccountRepositoryPG) UpdatePlan(ctx context.Context, id string, plan domain.Plan, periodLimit int) error {
	return r.exec(ctx, `
UPDATE accounts SET plan = $2, period_limit = $3, updated_at = NOW() WHERE id = $1;`, id, plan, periodLimit)
}

// SetSubscriptionStatus records a billing state transition.
func (r *AccountRepositoryPG) SetSubscriptionStatus(ctx context.Context, id string, status domain.SubscriptionStatus) error {
	return r.exec(ctx, `
UPDATE accounts SET subscription_status = $2, updated_at = NOW() WHERE id = $1;`, id, status)
}

// ResetPeriod zeroes the usage counter and advances the billing anchor.
func (r *AccountRepositoryPG) ResetPeriod(ctx context.Context, id string, anchor time.Time) error {
	return r.exec(ctx, `
UPDATE accounts SET usage_this_period = 0, period_anchor = $2, updated_at = NOW() WHERE id = $1;`, id, anchor)
}

// UpdateSettings updates user-editable settings.
func (r *AccountRepositoryPG) UpdateSettings(ctx context.Context, id string, sheetID string) error {
	return r.exec(ctx, `
UPDATE accounts SET sheet_id = $2, updated_at = NOW() WHERE id = $1;`, id, sheetID)
}

// UpdateSheetsToken stores a refreshed Sheets OAuth token.
func (r *AccountRepositoryPG) UpdateSheetsToken(ctx context.Context, id string, token string) error {
	return r.exec(ctx, `
UPDATE accounts SET sheets_token = $2, updated_at = NOW() WHERE id = $1;`, id, token)
}

// Delete removes the account row entirely.
func (r *AccountRepositoryPG) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM accounts WHERE id = $1;`, id)
}

func (r *AccountRepositoryPG) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Plan,
		&a.UsageThisPeriod,
		&a.PeriodLimit,
		&a.SubscriptionStatus,
		&a.PeriodAnchor,
		&a.SheetID,
		&a.SheetsToken,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

var _ domain.AccountRepository = (*AccountRepositoryPG)(nil)
