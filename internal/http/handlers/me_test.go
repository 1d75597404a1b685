package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clipsheet/internal/domain"
	"clipsheet/internal/middleware"
)

func profileRequest(method, path, body string, account *domain.Account) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	return req.WithContext(middleware.ContextWithAccount(req.Context(), account))
}

func TestMeReturnsProfileWithUsage(t *testing.T) {
	account := &domain.Account{
		ID:                 "acct-1",
		Email:              "me@example.com",
		Plan:               domain.PlanStarter,
		UsageThisPeriod:    12,
		PeriodLimit:        250,
		SubscriptionStatus: domain.SubscriptionActive,
		SheetsToken:        "secret-oauth-token",
	}
	app := newTestApp(newMemAccounts(account))

	rec := httptest.NewRecorder()
	app.Me(rec, profileRequest(http.MethodGet, "/v1/me", "", account))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Usage.Current != 12 || resp.Usage.Limit != 250 {
		t.Fatalf("usage = %+v, want {12 250}", resp.Usage)
	}
	if strings.Contains(rec.Body.String(), "secret-oauth-token") {
		t.Fatalf("sheets token leaked into profile response")
	}
}

func TestMePastDueUsageReflectsOverride(t *testing.T) {
	account := &domain.Account{
		ID:                 "acct-1",
		UsageThisPeriod:    3,
		PeriodLimit:        2000,
		SubscriptionStatus: domain.SubscriptionPastDue,
	}
	app := newTestApp(newMemAccounts(account))

	rec := httptest.NewRecorder()
	app.Me(rec, profileRequest(http.MethodGet, "/v1/me", "", account))

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Usage.Limit != domain.PastDueLimit {
		t.Fatalf("past-due usage limit = %d, want %d", resp.Usage.Limit, domain.PastDueLimit)
	}
}

func TestUpdateSettingsPersistsAndInvalidates(t *testing.T) {
	account := &domain.Account{ID: "acct-1"}
	accounts := newMemAccounts(account)
	app := newTestApp(accounts)
	liveCache, _ := newLiveCache(t)
	app.Cache = liveCache
	liveCache.Put(context.Background(), account)

	rec := httptest.NewRecorder()
	app.UpdateSettings(rec, profileRequest(http.MethodPatch, "/v1/me/settings",
		`{"sheet_id":" 1AbC-sheet "}`, account))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if got := accounts.accounts["acct-1"].SheetID; got != "1AbC-sheet" {
		t.Fatalf("sheet id = %q, want trimmed value", got)
	}
	if _, ok := liveCache.Get(context.Background(), "acct-1"); ok {
		t.Fatalf("cached snapshot survived settings update")
	}
}

func TestUpdateSettingsRequiresSheetID(t *testing.T) {
	account := &domain.Account{ID: "acct-1"}
	app := newTestApp(newMemAccounts(account))

	rec := httptest.NewRecorder()
	app.UpdateSettings(rec, profileRequest(http.MethodPatch, "/v1/me/settings", `{}`, account))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateSheetsTokenPersistsAndInvalidates(t *testing.T) {
	account := &domain.Account{ID: "acct-1"}
	accounts := newMemAccounts(account)
	app := newTestApp(accounts)
	liveCache, _ := newLiveCache(t)
	app.Cache = liveCache
	liveCache.Put(context.Background(), account)

	rec := httptest.NewRecorder()
	app.UpdateSheetsToken(rec, profileRequest(http.MethodPut, "/v1/me/sheets-token",
		`{"token":"ya29.fresh"}`, account))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := accounts.accounts["acct-1"].SheetsToken; got != "ya29.fresh" {
		t.Fatalf("sheets token = %q", got)
	}
	if _, ok := liveCache.Get(context.Background(), "acct-1"); ok {
		t.Fatalf("cached snapshot survived token refresh")
	}
}

func TestUpdateSheetsTokenRequiresToken(t *testing.T) {
	account := &domain.Account{ID: "acct-1"}
	app := newTestApp(newMemAccounts(account))

	rec := httptest.NewRecorder()
	app.UpdateSheetsToken(rec, profileRequest(http.MethodPut, "/v1/me/sheets-token",
		`{"token":"  "}`, account))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteAccountRemovesRowAndSnapshot(t *testing.T) {
	account := &domain.Account{ID: "acct-1"}
	accounts := newMemAccounts(account)
	app := newTestApp(accounts)
	liveCache, _ := newLiveCache(t)
	app.Cache = liveCache
	liveCache.Put(context.Background(), account)

	rec := httptest.NewRecorder()
	app.DeleteAccount(rec, profileRequest(http.MethodDelete, "/v1/me", "", account))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, ok := accounts.accounts["acct-1"]; ok {
		t.Fatalf("account row survived deletion")
	}
	if _, ok := liveCache.Get(context.Background(), "acct-1"); ok {
		t.Fatalf("cached snapshot survived deletion")
	}
}

func TestDeleteAccountNotFound(t *testing.T) {
	app := newTestApp(newMemAccounts())

	rec := httptest.NewRecorder()
	app.DeleteAccount(rec, profileRequest(http.MethodDelete, "/v1/me", "", &domain.Account{ID: "ghost"}))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMutationStoreFailure(t *testing.T) {
	account := &domain.Account{ID: "acct-1"}
	accounts := newMemAccounts(account)
	accounts.fail = errBoom
	app := newTestApp(accounts)

	rec := httptest.NewRecorder()
	app.UpdateSettings(rec, profileRequest(http.MethodPatch, "/v1/me/settings",
		`{"sheet_id":"s"}`, account))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
