package domain

import "time"

// Plan enumerates billing plans.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
)

// SubscriptionStatus enumerates billing subscription states.
type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// PastDueLimit is the usage ceiling enforced while a subscription is past
// due, regardless of the plan's nominal limit.
const PastDueLimit = 5

// PlanLimit returns the nominal monthly extraction quota for a plan.
func PlanLimit(p Plan) int {
	switch p {
	case PlanStarter:
		return 250
	case PlanPro:
		return 2000
	default:
		return 25
	}
}

// Account is the per-user billing and usage record. The row in Postgres is
// the source of truth; cached copies are read replicas with a bounded
// staleness window and must never be written back.
type Account struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	Plan               Plan               `json:"plan"`
	UsageThisPeriod    int                `json:"usage_this_period"`
	PeriodLimit        int                `json:"period_limit"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	PeriodAnchor       time.Time          `json:"period_anchor"`
	SheetID            string             `json:"sheet_id"`
	SheetsToken        string             `json:"-"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// EffectiveLimit is the quota actually enforced this period: past-due
// subscriptions are clamped to PastDueLimit.
func (a Account) EffectiveLimit() int {
	return EffectiveLimit(a.PeriodLimit, a.SubscriptionStatus)
}

// EffectiveLimit applies the past-due downgrade to a nominal period limit.
func EffectiveLimit(periodLimit int, status SubscriptionStatus) int {
	if status == SubscriptionPastDue {
		return PastDueLimit
	}
	return periodLimit
}

// Remaining reports how much quota is left this period, never negative.
func (a Account) Remaining() int {
	if r := a.EffectiveLimit() - a.UsageThisPeriod; r > 0 {
		return r
	}
	return 0
}

// UsageSnapshot is the usage view returned to clients alongside results and
// quota-exceeded responses.
type UsageSnapshot struct {
	Current int `json:"current"`
	Limit   int `json:"limit"`
}

// Snapshot returns the account's current usage against its effective limit.
func (a Account) Snapshot() UsageSnapshot {
	return UsageSnapshot{Current: a.UsageThisPeriod, Limit: a.EffectiveLimit()}
}
