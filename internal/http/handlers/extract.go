package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"clipsheet/internal/domain"
	"clipsheet/internal/middleware"
	"clipsheet/internal/providers/extract"
)

type extractResponse struct {
	Rows     []extract.Row        `json:"rows"`
	Provider string               `json:"provider"`
	Usage    domain.UsageSnapshot `json:"usage"`
}

// Extract is the quota-gated operation. One unit of quota is charged per
// attempt that passes the gate, before the provider call: the charge is
// final even if the caller disconnects mid-extraction.
func (a *App) Extract(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())

	var req extract.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Columns) == 0 || req.PageText == "" {
		a.error(w, http.StatusBadRequest, "columns and page_text are required")
		return
	}

	result, err := a.Ledger.TryConsume(r.Context(), account.ID)
	if err != nil {
		// Unknown quota state is never an implicit allow.
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !result.Allowed {
		a.json(w, http.StatusForbidden, map[string]any{
			"error": quotaMessage(middleware.LocaleFromContext(r.Context())),
			"usage": domain.UsageSnapshot{Current: result.NewUsage, Limit: result.EffectiveLimit},
		})
		return
	}

	extracted, err := a.Extractor.Extract(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Logger.Error().Err(err).Str("account_id", account.ID).Msg("extraction provider failed")
		a.error(w, http.StatusBadGateway, "extraction failed")
		return
	}

	a.json(w, http.StatusOK, extractResponse{
		Rows:     extracted.Rows,
		Provider: extracted.Provider,
		Usage:    domain.UsageSnapshot{Current: result.NewUsage, Limit: result.EffectiveLimit},
	})
}
