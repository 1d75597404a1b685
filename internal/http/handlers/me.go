package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"clipsheet/internal/domain"
	"clipsheet/internal/middleware"
)

type profileResponse struct {
	Account *domain.Account      `json:"account"`
	Usage   domain.UsageSnapshot `json:"usage"`
}

// Me returns the hydrated profile with its usage snapshot. The snapshot can
// lag the durable counter by up to the cache TTL.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	a.json(w, http.StatusOK, profileResponse{Account: account, Usage: account.Snapshot()})
}

type settingsRequest struct {
	SheetID *string `json:"sheet_id"`
}

// UpdateSettings persists user-editable settings and evicts the cached
// snapshot so the next hydration sees the new values.
func (a *App) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SheetID == nil {
		a.error(w, http.StatusBadRequest, "sheet_id is required")
		return
	}

	if err := a.Accounts.UpdateSettings(r.Context(), account.ID, strings.TrimSpace(*req.SheetID)); err != nil {
		a.storeError(w, err, "settings update failed", account.ID)
		return
	}
	a.Cache.Invalidate(r.Context(), account.ID)

	a.json(w, http.StatusOK, map[string]string{"status": "updated"})
}

type sheetsTokenRequest struct {
	Token string `json:"token"`
}

// UpdateSheetsToken stores a refreshed spreadsheet OAuth token. Token refresh
// mutates the account row, so it invalidates like every other write path.
func (a *App) UpdateSheetsToken(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())

	var req sheetsTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		a.error(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := a.Accounts.UpdateSheetsToken(r.Context(), account.ID, strings.TrimSpace(req.Token)); err != nil {
		a.storeError(w, err, "sheets token update failed", account.ID)
		return
	}
	a.Cache.Invalidate(r.Context(), account.ID)

	a.json(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteAccount removes the account and its cached snapshot.
func (a *App) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())

	if err := a.Accounts.Delete(r.Context(), account.ID); err != nil {
		a.storeError(w, err, "account deletion failed", account.ID)
		return
	}
	a.Cache.Invalidate(r.Context(), account.ID)

	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *App) storeError(w http.ResponseWriter, err error, msg, accountID string) {
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "account profile missing")
		return
	}
	a.Logger.Error().Err(err).Str("account_id", accountID).Msg(msg)
	a.error(w, http.StatusInternalServerError, "internal error")
}
