package handlers

import (
	"net/http"

	"courier-reconciliation-service/internal/middleware"
	"courier-reconciliation-service/pkg/response"
)

// Telemetry exposes the rolling per-route latency percentiles.
func (h *Handler) Telemetry(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]any{
		"routes": middleware.LatencySnapshot(),
		"now":    h.now().UTC(),
	})
}
