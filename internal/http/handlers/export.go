package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"clipsheet/internal/domain"
	"clipsheet/internal/middleware"
	"clipsheet/internal/providers/sheets"
)

type exportRequest struct {
	Values [][]string `json:"values"`
}

// Export appends rows to the caller's configured spreadsheet. Exports are not
// metered; the extraction that produced the rows already was.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Values) == 0 {
		a.error(w, http.StatusBadRequest, "values are required")
		return
	}

	if account.SheetID == "" {
		a.error(w, http.StatusBadRequest, sheets.ErrNoSheet.Error())
		return
	}

	err := a.Sheets.Append(r.Context(), sheets.AppendRequest{
		SpreadsheetID: account.SheetID,
		AccessToken:   account.SheetsToken,
		Values:        req.Values,
	})
	switch {
	case err == nil:
		a.json(w, http.StatusOK, map[string]any{"status": "exported", "rows": len(req.Values)})
	case errors.Is(err, domain.ErrUnauthorized):
		// The stored token went stale; the extension should refresh it via
		// PUT /v1/me/sheets-token.
		a.error(w, http.StatusConflict, "sheets token rejected, refresh it")
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, err.Error())
	default:
		a.Logger.Error().Err(err).Str("account_id", account.ID).Msg("sheets export failed")
		a.error(w, http.StatusBadGateway, "export failed")
	}
}
