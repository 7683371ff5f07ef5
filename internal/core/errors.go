package core

import "fmt"

// Error codes returned by the engine.
const (
	ErrCodeValidation      = "validation_error"
	ErrCodeInvalidTimezone = "invalid_timezone"
	ErrCodeInvalidState    = "invalid_state"
	ErrCodeNotFound        = "not_found"
	ErrCodeContentNotFound = "content_not_found"
	ErrCodeExecution       = "execution_error"
	ErrCodeClaimConflict   = "claim_conflict"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeInternal        = "internal_error"
)

// SchedError is the engine's structured error type. Retryable tells callers
// whether the same request may succeed later without modification.
type SchedError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

func (e *SchedError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewValidationError reports malformed input. Never retryable.
func NewValidationError(message string, details map[string]any) *SchedError {
	return &SchedError{Code: ErrCodeValidation, Message: message, Details: details}
}

// NewInvalidTimezoneError reports a timezone string that does not resolve to
// a known IANA zone.
func NewInvalidTimezoneError(tz string) *SchedError {
	return &SchedError{
		Code:    ErrCodeInvalidTimezone,
		Message: fmt.Sprintf("Unknown timezone %q.", tz),
		Details: map[string]any{"timezone": tz},
	}
}

// NewInvalidStateError reports an operation attempted against a schedule not
// in the required starting state.
func NewInvalidStateError(message string, details map[string]any) *SchedError {
	return &SchedError{Code: ErrCodeInvalidState, Message: message, Details: details}
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resourceType, id string) *SchedError {
	return &SchedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s '%s' not found.", resourceType, id),
		Details: map[string]any{"resource_type": resourceType, "resource_id": id},
	}
}

// NewContentNotFoundError reports that the target content item no longer
// exists. Retryable: the content may reappear.
func NewContentNotFoundError(contentType, contentID string) *SchedError {
	return &SchedError{
		Code:      ErrCodeContentNotFound,
		Message:   fmt.Sprintf("Content %s/%s not found.", contentType, contentID),
		Retryable: true,
		Details:   map[string]any{"content_type": contentType, "content_id": contentID},
	}
}

// NewExecutionError reports a failure applying a schedule's action.
func NewExecutionError(message string) *SchedError {
	return &SchedError{Code: ErrCodeExecution, Message: message, Retryable: true}
}

// NewClaimConflictError signals a lost compare-and-swap claim. Internal: the
// processor skips the item rather than surfacing this to callers.
func NewClaimConflictError(scheduleID string) *SchedError {
	return &SchedError{
		Code:    ErrCodeClaimConflict,
		Message: fmt.Sprintf("Schedule '%s' was claimed by another run.", scheduleID),
		Details: map[string]any{"schedule_id": scheduleID},
	}
}

// NewUnauthorizedError reports a missing or invalid API credential.
func NewUnauthorizedError(message string) *SchedError {
	return &SchedError{Code: ErrCodeUnauthorized, Message: message}
}

// NewInternalError reports an unexpected engine failure. Retryable.
func NewInternalError(message string) *SchedError {
	return &SchedError{Code: ErrCodeInternal, Message: message, Retryable: true}
}
