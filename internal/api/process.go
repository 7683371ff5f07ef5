package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/newsdeskhq/content-scheduler/internal/core"
)

// ProcessHandler serves POST /v1/process, the external trigger.
type ProcessHandler struct {
	processor core.PendingProcessor
}

// NewProcessHandler creates a ProcessHandler.
func NewProcessHandler(processor core.PendingProcessor) *ProcessHandler {
	return &ProcessHandler{processor: processor}
}

// Process runs one pending sweep. The body is optional; {"now": <timestamp>}
// processes as of an explicit instant, for replaying a window or testing.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Now string `json:"now"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, core.NewValidationError("Request body is not valid JSON.", nil))
		return
	}

	var now time.Time
	if req.Now != "" {
		parsed, err := core.ParseTime(req.Now)
		if err != nil {
			WriteError(w, http.StatusBadRequest, core.NewValidationError(
				"Field 'now' is not a valid timestamp.",
				map[string]any{"field": "now", "value": req.Now},
			))
			return
		}
		now = parsed
	}

	result, err := h.processor.ProcessPending(r.Context(), now)
	if err != nil {
		WriteSchedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
