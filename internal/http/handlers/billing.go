package handlers

import (
	"crypto/hmac"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"clipsheet/internal/domain"
)

type billingEvent struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	Plan      string `json:"plan,omitempty"`
	Status    string `json:"status,omitempty"`
}

// BillingWebhook applies subscription events from the payment processor.
// Every event that touches the account row invalidates its cached snapshot
// after the durable write, same as any other mutation path.
func (a *App) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	if a.WebhookSecret != "" &&
		!hmac.Equal([]byte(r.Header.Get("X-Webhook-Secret")), []byte(a.WebhookSecret)) {
		a.error(w, http.StatusUnauthorized, "bad webhook secret")
		return
	}

	var event billingEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil || event.AccountID == "" {
		a.error(w, http.StatusBadRequest, "malformed event")
		return
	}

	var err error
	switch event.Type {
	case "plan.changed":
		plan := domain.Plan(event.Plan)
		switch plan {
		case domain.PlanFree, domain.PlanStarter, domain.PlanPro:
			err = a.Accounts.UpdatePlan(r.Context(), event.AccountID, plan, domain.PlanLimit(plan))
		default:
			a.error(w, http.StatusBadRequest, "unknown plan")
			return
		}
	case "subscription.updated":
		status := domain.SubscriptionStatus(event.Status)
		switch status {
		case domain.SubscriptionNone, domain.SubscriptionActive,
			domain.SubscriptionPastDue, domain.SubscriptionCanceled:
			err = a.Accounts.SetSubscriptionStatus(r.Context(), event.AccountID, status)
		default:
			a.error(w, http.StatusBadRequest, "unknown subscription status")
			return
		}
	case "period.rolled":
		err = a.Accounts.ResetPeriod(r.Context(), event.AccountID, time.Now().UTC())
	default:
		// Unrecognized events are acknowledged so the processor stops
		// retrying them.
		a.json(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "unknown account")
			return
		}
		a.Logger.Error().Err(err).
			Str("account_id", event.AccountID).
			Str("event_type", event.Type).
			Msg("billing event failed")
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.Cache.Invalidate(r.Context(), event.AccountID)
	a.json(w, http.StatusOK, map[string]bool{"received": true})
}
