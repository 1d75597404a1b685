package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clipsheet/internal/domain"
)

func billingRequest(body, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/billing/webhook", strings.NewReader(body))
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	return req
}

func TestBillingWebhookPlanChange(t *testing.T) {
	account := &domain.Account{ID: "acct-1", Plan: domain.PlanFree, PeriodLimit: 25}
	accounts := newMemAccounts(account)
	app := newTestApp(accounts)
	liveCache, _ := newLiveCache(t)
	app.Cache = liveCache
	liveCache.Put(context.Background(), account)

	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, billingRequest(`{"type":"plan.changed","account_id":"acct-1","plan":"pro"}`, ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	got := accounts.accounts["acct-1"]
	if got.Plan != domain.PlanPro || got.PeriodLimit != domain.PlanLimit(domain.PlanPro) {
		t.Fatalf("account after plan change = %+v", got)
	}
	if _, ok := liveCache.Get(context.Background(), "acct-1"); ok {
		t.Fatalf("cached snapshot survived plan change")
	}
}

func TestBillingWebhookSubscriptionUpdate(t *testing.T) {
	account := &domain.Account{ID: "acct-1", SubscriptionStatus: domain.SubscriptionActive, PeriodLimit: 2000}
	accounts := newMemAccounts(account)
	app := newTestApp(accounts)
	liveCache, _ := newLiveCache(t)
	app.Cache = liveCache
	liveCache.Put(context.Background(), account)

	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, billingRequest(`{"type":"subscription.updated","account_id":"acct-1","status":"past_due"}`, ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if accounts.accounts["acct-1"].SubscriptionStatus != domain.SubscriptionPastDue {
		t.Fatalf("subscription status not updated")
	}
	if _, ok := liveCache.Get(context.Background(), "acct-1"); ok {
		t.Fatalf("cached snapshot survived status change")
	}
}

func TestBillingWebhookPeriodRollover(t *testing.T) {
	account := &domain.Account{ID: "acct-1", UsageThisPeriod: 19, PeriodLimit: 25}
	accounts := newMemAccounts(account)
	app := newTestApp(accounts)

	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, billingRequest(`{"type":"period.rolled","account_id":"acct-1"}`, ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := accounts.accounts["acct-1"].UsageThisPeriod; got != 0 {
		t.Fatalf("usage after rollover = %d, want 0", got)
	}
}

func TestBillingWebhookUnknownAccount(t *testing.T) {
	app := newTestApp(newMemAccounts())

	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, billingRequest(`{"type":"plan.changed","account_id":"nope","plan":"pro"}`, ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestBillingWebhookRejectsBadSecret(t *testing.T) {
	app := newTestApp(newMemAccounts())
	app.WebhookSecret = "hunter2"

	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, billingRequest(`{"type":"period.rolled","account_id":"acct-1"}`, "wrong"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestBillingWebhookRejectsUnknownPlan(t *testing.T) {
	app := newTestApp(newMemAccounts(&domain.Account{ID: "acct-1"}))

	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, billingRequest(`{"type":"plan.changed","account_id":"acct-1","plan":"platinum"}`, ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBillingWebhookAcknowledgesUnknownEventType(t *testing.T) {
	app := newTestApp(newMemAccounts())

	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, billingRequest(`{"type":"invoice.created","account_id":"acct-1"}`, ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 ack for ignorable events", rec.Code)
	}
}
