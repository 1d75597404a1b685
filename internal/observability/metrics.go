// Package observability exposes Prometheus metrics for the cache, rate
// limiter, and quota ledger.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's instrument set. A single instance is created in
// main and injected into components so tests can use private registries.
type Metrics struct {
	registry *prometheus.Registry

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	RateLimitDecisions *prometheus.CounterVec
	LimiterFallback    prometheus.Gauge

	QuotaConsumes *prometheus.CounterVec
}

// NewMetrics registers all instruments on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "clipsheet_account_cache_hits_total",
			Help: "Account cache lookups served from the shared store.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "clipsheet_account_cache_misses_total",
			Help: "Account cache lookups that fell through to Postgres.",
		}),
		RateLimitDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clipsheet_ratelimit_decisions_total",
			Help: "Rate limiter decisions by scope and outcome.",
		}, []string{"scope", "outcome"}),
		LimiterFallback: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clipsheet_ratelimit_fallback_active",
			Help: "1 while the rate limiter is serving from per-process memory.",
		}),
		QuotaConsumes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clipsheet_quota_consume_total",
			Help: "Atomic quota consumption attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
