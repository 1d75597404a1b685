package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"clipsheet/internal/cache"
	"clipsheet/internal/domain"
	"clipsheet/internal/providers/extract"
	"clipsheet/internal/providers/sheets"
	"clipsheet/internal/ratelimit"
	"clipsheet/internal/usage"
)

// IdentityProvider verifies an external sign-in credential and returns the
// verified email. The provider behind it is a black box.
type IdentityProvider interface {
	Verify(ctx context.Context, credential string) (email string, err error)
}

// App bundles the handlers' injected dependencies.
type App struct {
	Logger   zerolog.Logger
	Accounts domain.AccountRepository
	Cache    *cache.AccountCache
	Ledger   *usage.Ledger
	Limiter  *ratelimit.Failover

	Identity  IdentityProvider
	Extractor extract.Extractor
	Sheets    sheets.Appender

	TokenSecret   string
	TokenTTL      time.Duration
	WebhookSecret string

	// PingDB probes the durable store for the health endpoint.
	PingDB func(ctx context.Context) error
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

// quotaExceededMessage is the localized "upgrade" messaging returned with 403
// quota responses. Keys are base languages negotiated by the locale
// middleware.
var quotaExceededMessage = map[string]string{
	"en": "Monthly extraction quota reached. Upgrade your plan to continue.",
	"es": "Se alcanzó la cuota mensual de extracción. Mejora tu plan para continuar.",
	"pt": "Cota mensal de extração atingida. Atualize seu plano para continuar.",
	"de": "Monatliches Extraktionskontingent erreicht. Upgrade deinen Plan, um fortzufahren.",
	"id": "Kuota ekstraksi bulanan tercapai. Tingkatkan paket Anda untuk melanjutkan.",
}

func quotaMessage(locale string) string {
	if msg, ok := quotaExceededMessage[locale]; ok {
		return msg
	}
	return quotaExceededMessage["en"]
}
