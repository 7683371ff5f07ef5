package api

import (
	"net/http"

	"github.com/newsdeskhq/content-scheduler/internal/core"
)

// SystemHandler serves health and server info.
type SystemHandler struct {
	health core.HealthReporter
}

// NewSystemHandler creates a SystemHandler.
func NewSystemHandler(health core.HealthReporter) *SystemHandler {
	return &SystemHandler{health: health}
}

// Health handles GET /v1/health. A degraded backend reports 503 with the
// same payload shape.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp, err := h.health.Health(r.Context())
	if err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Info handles GET /v1/info.
func (h *SystemHandler) Info(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"name":          "content-scheduler",
		"version":       core.EngineVersion,
		"content_types": core.ContentTypes,
		"actions":       core.Actions,
	})
}
