// Package api implements the HTTP surface: handlers, middleware, and the
// JSON error envelope.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/newsdeskhq/content-scheduler/internal/core"
)

// ErrorResponse is the JSON envelope for all error responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the structured error inside the envelope.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", core.MediaType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError writes a structured error response. The request id is taken from
// the X-Request-Id response header set by the Headers middleware.
func WriteError(w http.ResponseWriter, status int, schedErr *core.SchedError) {
	resp := ErrorResponse{
		Error: ErrorBody{
			Code:      schedErr.Code,
			Message:   schedErr.Message,
			Retryable: schedErr.Retryable,
			RequestID: w.Header().Get("X-Request-Id"),
			Details:   schedErr.Details,
		},
	}
	WriteJSON(w, status, resp)
}

// WriteSchedError maps an error to its HTTP status and writes it. Non-engine
// errors become opaque internal errors so backend details never leak.
func WriteSchedError(w http.ResponseWriter, err error) {
	var schedErr *core.SchedError
	if !errors.As(err, &schedErr) {
		slog.Error("unexpected error", "error", err)
		schedErr = core.NewInternalError("An unexpected error occurred.")
	}
	WriteError(w, statusForCode(schedErr.Code), schedErr)
}

func statusForCode(code string) int {
	switch code {
	case core.ErrCodeValidation, core.ErrCodeInvalidTimezone:
		return http.StatusBadRequest
	case core.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case core.ErrCodeNotFound, core.ErrCodeContentNotFound:
		return http.StatusNotFound
	case core.ErrCodeInvalidState, core.ErrCodeClaimConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
