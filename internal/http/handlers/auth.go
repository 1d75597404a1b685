package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"clipsheet/internal/domain"
	"clipsheet/internal/middleware"
)

type tokenExchangeRequest struct {
	Credential string `json:"credential"`
}

type tokenExchangeResponse struct {
	Token   string          `json:"token"`
	Account *domain.Account `json:"account"`
}

// ExchangeToken turns an identity-provider credential into a service JWT,
// provisioning the usage account on first sign-in. Failures here count
// against the auth rate-limit scope; successes are refunded by the scope
// middleware.
func (a *App) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	var req tokenExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Credential == "" {
		a.error(w, http.StatusBadRequest, "credential is required")
		return
	}

	email, err := a.Identity.Verify(r.Context(), req.Credential)
	if err != nil {
		a.error(w, http.StatusUnauthorized, "credential rejected")
		return
	}

	account, err := a.Accounts.GetByEmail(r.Context(), email)
	if errors.Is(err, domain.ErrNotFound) {
		account, err = a.provision(r, email)
	}
	if err != nil {
		a.Logger.Error().Err(err).Str("email", email).Msg("token exchange account lookup failed")
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}

	claims := middleware.TokenClaims{
		Sub:      account.ID,
		Email:    account.Email,
		Exp:      time.Now().Add(a.TokenTTL).Unix(),
		Issuer:   "clipsheet",
		Audience: "clipsheet-extension",
	}
	token, err := middleware.SignJWT(a.TokenSecret, claims)
	if err != nil {
		a.Logger.Error().Err(err).Msg("token signing failed")
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.json(w, http.StatusOK, tokenExchangeResponse{Token: token, Account: account})
}

func (a *App) provision(r *http.Request, email string) (*domain.Account, error) {
	account := &domain.Account{
		ID:                 uuid.NewString(),
		Email:              email,
		Plan:               domain.PlanFree,
		PeriodLimit:        domain.PlanLimit(domain.PlanFree),
		SubscriptionStatus: domain.SubscriptionNone,
	}
	created, err := a.Accounts.Create(r.Context(), account)
	if err != nil {
		return nil, err
	}
	a.Logger.Info().Str("account_id", created.ID).Msg("account provisioned")
	return created, nil
}
