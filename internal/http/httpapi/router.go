// Package httpapi assembles the request pipeline: identify, rate-limit,
// authenticate, hydrate, execute. Stage order is fixed; each stage terminates
// the request on its own failure.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"clipsheet/internal/http/handlers"
	"clipsheet/internal/infra/geoip"
	"clipsheet/internal/middleware"
	"clipsheet/internal/observability"
	"clipsheet/internal/ratelimit"
)

// Options carries the router's cross-cutting dependencies.
type Options struct {
	Logger         zerolog.Logger
	GeoIP          geoip.Lookup
	AllowedOrigins []string
	Metrics        *observability.Metrics
	Verifier       middleware.TokenVerifier
}

// NewRouter wires the middleware pipeline and routes.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Identify(opts.GeoIP),
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.Locale,
	)

	r.Get("/v1/healthz", app.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(app.Limiter, ratelimit.ScopeGeneral))

		// Billing events authenticate with a shared secret, not a bearer
		// token; the processor has no user credential.
		r.Post("/v1/billing/webhook", app.BillingWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(app.Limiter, ratelimit.ScopeAuth, middleware.RefundOnSuccess()))
			r.Post("/v1/auth/token", app.ExchangeToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Authenticate(opts.Verifier),
				middleware.HydrateProfile(app.Cache, app.Accounts),
			)

			r.Get("/v1/me", app.Me)
			r.Patch("/v1/me/settings", app.UpdateSettings)
			r.Put("/v1/me/sheets-token", app.UpdateSheetsToken)
			r.Delete("/v1/me", app.DeleteAccount)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(app.Limiter, ratelimit.ScopeExtract))
				r.Post("/v1/extract", app.Extract)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(app.Limiter, ratelimit.ScopeExport))
				r.Post("/v1/export", app.Export)
			})
		})
	})

	return r
}
