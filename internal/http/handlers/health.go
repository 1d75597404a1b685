package handlers

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status          string `json:"status"`
	Database        bool   `json:"database"`
	SharedStore     bool   `json:"shared_store"`
	LimiterFallback bool   `json:"limiter_fallback"`
}

// Health reports durable-store and shared-store reachability independently.
// The durable store decides healthy vs unhealthy; a missing shared store or a
// limiter on its local fallback only degrades.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Database:    a.PingDB != nil && a.PingDB(ctx) == nil,
		SharedStore: a.Cache != nil && a.Cache.Available(ctx),
	}
	if a.Limiter != nil {
		resp.LimiterFallback = a.Limiter.Degraded()
	}

	code := http.StatusOK
	switch {
	case !resp.Database:
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	case !resp.SharedStore || resp.LimiterFallback:
		resp.Status = "degraded"
	default:
		resp.Status = "ok"
	}

	a.json(w, code, resp)
}
