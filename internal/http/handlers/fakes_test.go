package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"clipsheet/internal/cache"
	"clipsheet/internal/domain"
	"clipsheet/internal/providers/extract"
	"clipsheet/internal/providers/sheets"
	"clipsheet/internal/usage"
)

// memAccounts is an in-memory domain.AccountRepository whose TryConsume
// serializes like the Postgres row lock.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	consume  error // forced TryConsume failure
	fail     error // forced failure for all other calls
}

func newMemAccounts(accounts ...*domain.Account) *memAccounts {
	m := &memAccounts{accounts: make(map[string]*domain.Account)}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *memAccounts) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	stored := *a
	now := time.Now()
	stored.PeriodAnchor, stored.CreatedAt, stored.UpdatedAt = now, now, now
	m.accounts[a.ID] = &stored
	return &stored, nil
}

func (m *memAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	if a, ok := m.accounts[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, a := range m.accounts {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccounts) TryConsume(ctx context.Context, id string) (domain.ConsumeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consume != nil {
		return domain.ConsumeResult{}, m.consume
	}
	a, ok := m.accounts[id]
	if !ok {
		return domain.ConsumeResult{}, nil
	}
	result := domain.ConsumeResult{
		EffectiveLimit:     a.EffectiveLimit(),
		Plan:               a.Plan,
		SubscriptionStatus: a.SubscriptionStatus,
	}
	if a.UsageThisPeriod >= result.EffectiveLimit {
		result.NewUsage = a.UsageThisPeriod
		return result, nil
	}
	a.UsageThisPeriod++
	result.Allowed = true
	result.NewUsage = a.UsageThisPeriod
	return result, nil
}

func (m *memAccounts) UpdatePlan(ctx context.Context, id string, plan domain.Plan, limit int) error {
	return m.update(id, func(a *domain.Account) {
		a.Plan = plan
		a.PeriodLimit = limit
	})
}

func (m *memAccounts) SetSubscriptionStatus(ctx context.Context, id string, status domain.SubscriptionStatus) error {
	return m.update(id, func(a *domain.Account) { a.SubscriptionStatus = status })
}

func (m *memAccounts) ResetPeriod(ctx context.Context, id string, anchor time.Time) error {
	return m.update(id, func(a *domain.Account) {
		a.UsageThisPeriod = 0
		a.PeriodAnchor = anchor
	})
}

func (m *memAccounts) UpdateSettings(ctx context.Context, id string, sheetID string) error {
	return m.update(id, func(a *domain.Account) { a.SheetID = sheetID })
}

func (m *memAccounts) UpdateSheetsToken(ctx context.Context, id string, token string) error {
	return m.update(id, func(a *domain.Account) { a.SheetsToken = token })
}

func (m *memAccounts) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.accounts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *memAccounts) update(id string, fn func(*domain.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(a)
	return nil
}

type stubExtractor struct {
	result *extract.Result
	err    error
	calls  int
}

func (s *stubExtractor) Extract(ctx context.Context, req extract.Request) (*extract.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubAppender struct {
	err   error
	calls int
	last  sheets.AppendRequest
}

func (s *stubAppender) Append(ctx context.Context, req sheets.AppendRequest) error {
	s.calls++
	s.last = req
	return s.err
}

type stubIdentity struct {
	email string
	err   error
}

func (s *stubIdentity) Verify(ctx context.Context, credential string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.email, nil
}

// newTestApp builds an App over in-memory fakes with a degraded (nil-client)
// cache. Tests that assert on cache contents swap in a live one.
func newTestApp(accounts *memAccounts) *App {
	c := cache.NewAccountCache(nil, time.Hour, zerolog.Nop(), nil)
	return &App{
		Logger:      zerolog.Nop(),
		Accounts:    accounts,
		Cache:       c,
		Ledger:      usage.NewLedger(accounts, c, zerolog.Nop(), nil),
		TokenSecret: "test-secret",
		TokenTTL:    time.Hour,
		PingDB:      func(ctx context.Context) error { return nil },
	}
}

func newLiveCache(t *testing.T) (*cache.AccountCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return cache.NewAccountCache(client, time.Hour, zerolog.Nop(), nil), srv
}

func newLedgerWithCache(accounts *memAccounts, c *cache.AccountCache) *usage.Ledger {
	return usage.NewLedger(accounts, c, zerolog.Nop(), nil)
}

var errBoom = errors.New("boom")
