package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ValidateCreateRequest checks a single-schedule request against now.
// The scheduled instant must be strictly in the future.
func ValidateCreateRequest(req *CreateRequest, now time.Time) *SchedError {
	if strings.TrimSpace(req.ContentID) == "" {
		return NewValidationError("Field 'content_id' is required.", map[string]any{"field": "content_id"})
	}
	if err := validateTarget(req.ContentType, req.Action); err != nil {
		return err
	}
	if _, err := validateScheduledAt(req.ScheduledAt, now); err != nil {
		return err
	}
	if err := validateTimezone(req.Timezone); err != nil {
		return err
	}
	if err := validateMetadata(req.Metadata); err != nil {
		return err
	}
	return nil
}

// ValidateBatchRequest checks the batch-level fields of a batch request.
// Per-item failures are the caller's concern; this only rejects input that
// would invalidate the whole batch.
func ValidateBatchRequest(req *BatchRequest, now time.Time) *SchedError {
	if len(req.ContentIDs) == 0 {
		return NewValidationError("Field 'content_ids' must not be empty.", map[string]any{"field": "content_ids"})
	}
	if req.StaggerIntervalMinutes < 0 {
		return NewValidationError("Field 'stagger_interval_minutes' must not be negative.", map[string]any{
			"field": "stagger_interval_minutes",
			"value": req.StaggerIntervalMinutes,
		})
	}
	if err := validateTarget(req.ContentType, req.Action); err != nil {
		return err
	}
	if _, err := validateScheduledAt(req.ScheduledAt, now); err != nil {
		return err
	}
	if err := validateTimezone(req.Timezone); err != nil {
		return err
	}
	if err := validateMetadata(req.Metadata); err != nil {
		return err
	}
	return nil
}

// ValidateListFilter rejects filter values outside their enumerated sets so a
// typo does not silently match nothing.
func ValidateListFilter(f *ListFilter) *SchedError {
	if f.ContentType != "" && !IsValidContentType(f.ContentType) {
		return NewValidationError(fmt.Sprintf("Unknown content_type %q.", f.ContentType), map[string]any{
			"field": "content_type", "allowed": ContentTypes,
		})
	}
	if f.Status != "" && !IsValidStatus(f.Status) {
		return NewValidationError(fmt.Sprintf("Unknown status %q.", f.Status), map[string]any{"field": "status"})
	}
	if f.Action != "" && !IsValidAction(f.Action) {
		return NewValidationError(fmt.Sprintf("Unknown action %q.", f.Action), map[string]any{
			"field": "action", "allowed": Actions,
		})
	}
	for field, value := range map[string]string{
		"scheduled_after":  f.ScheduledAfter,
		"scheduled_before": f.ScheduledBefore,
	} {
		if value == "" {
			continue
		}
		if _, err := ParseTime(value); err != nil {
			return NewValidationError(fmt.Sprintf("Field '%s' is not a valid timestamp.", field), map[string]any{
				"field": field, "value": value,
			})
		}
	}
	return nil
}

func validateTarget(contentType, action string) *SchedError {
	if !IsValidContentType(contentType) {
		return NewValidationError(fmt.Sprintf("Unknown content_type %q.", contentType), map[string]any{
			"field": "content_type", "allowed": ContentTypes,
		})
	}
	if !IsValidAction(action) {
		return NewValidationError(fmt.Sprintf("Unknown action %q.", action), map[string]any{
			"field": "action", "allowed": Actions,
		})
	}
	return nil
}

func validateScheduledAt(value string, now time.Time) (time.Time, *SchedError) {
	if value == "" {
		return time.Time{}, NewValidationError("Field 'scheduled_at' is required.", map[string]any{"field": "scheduled_at"})
	}
	t, err := ParseTime(value)
	if err != nil {
		return time.Time{}, NewValidationError("Field 'scheduled_at' is not a valid timestamp.", map[string]any{
			"field": "scheduled_at", "value": value,
		})
	}
	if !t.After(now) {
		return time.Time{}, NewValidationError("Field 'scheduled_at' must be in the future.", map[string]any{
			"field":        "scheduled_at",
			"scheduled_at": FormatTime(t),
			"now":          FormatTime(now),
		})
	}
	return t, nil
}

func validateTimezone(tz string) *SchedError {
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return NewInvalidTimezoneError(tz)
	}
	return nil
}

func validateMetadata(meta json.RawMessage) *SchedError {
	if len(meta) == 0 {
		return nil
	}
	if typ := detectJSONType(meta); typ != "object" {
		return NewValidationError("Field 'metadata' must be a JSON object.", map[string]any{
			"field": "metadata", "got": typ,
		})
	}
	return nil
}

// detectJSONType classifies a raw JSON value by its first non-space byte.
func detectJSONType(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "empty"
	}
	switch trimmed[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
