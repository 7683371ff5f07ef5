package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/newsdeskhq/content-scheduler/internal/core"
)

// ScheduleHandler serves the /v1/schedules endpoints.
type ScheduleHandler struct {
	svc  core.SchedulerService
	exec core.ScheduleExecutor
}

// NewScheduleHandler creates a ScheduleHandler.
func NewScheduleHandler(svc core.SchedulerService, exec core.ScheduleExecutor) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, exec: exec}
}

// Create handles POST /v1/schedules.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req core.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sched, err := h.svc.ScheduleContent(r.Context(), &req)
	if err != nil {
		WriteSchedError(w, err)
		return
	}

	w.Header().Set("Location", "/v1/schedules/"+sched.ID)
	WriteJSON(w, http.StatusCreated, map[string]any{"schedule": sched})
}

// CreateBatch handles POST /v1/schedules/batch.
func (h *ScheduleHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req core.BatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.BatchSchedule(r.Context(), &req)
	if err != nil {
		WriteSchedError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, result)
}

// Get handles GET /v1/schedules/{id}.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	sched, err := h.svc.GetSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteSchedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"schedule": sched})
}

// List handles GET /v1/schedules.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.ListFilter{
		ContentType:     q.Get("content_type"),
		Status:          q.Get("status"),
		Action:          q.Get("action"),
		ScheduledAfter:  q.Get("scheduled_after"),
		ScheduledBefore: q.Get("scheduled_before"),
		CreatedBy:       q.Get("created_by"),
		Search:          q.Get("search"),
	}
	page := queryInt(q.Get("page"), 1)
	limit := queryInt(q.Get("limit"), 0)

	schedules, pagination, err := h.svc.ListSchedules(r.Context(), filter, page, limit)
	if err != nil {
		WriteSchedError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"schedules":  schedules,
		"pagination": pagination,
	})
}

// Cancel handles POST /v1/schedules/{id}/cancel. The body is optional.
func (h *ScheduleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CancelledBy string `json:"cancelled_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, core.NewValidationError("Request body is not valid JSON.", nil))
		return
	}

	sched, err := h.svc.CancelSchedule(r.Context(), chi.URLParam(r, "id"), req.CancelledBy)
	if err != nil {
		WriteSchedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"schedule": sched})
}

// Retry handles POST /v1/schedules/{id}/retry.
func (h *ScheduleHandler) Retry(w http.ResponseWriter, r *http.Request) {
	sched, err := h.exec.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteSchedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"schedule": sched})
}

// decodeJSON decodes the request body into v, writing a validation error and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, core.NewValidationError("Request body is not valid JSON.", nil))
		return false
	}
	return true
}

func queryInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
