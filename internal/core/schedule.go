package core

import (
	"encoding/json"
	"time"
)

// EngineVersion is reported in the server info metric and response headers.
const EngineVersion = "1.0.0"

// MediaType is the content type for all API responses.
const MediaType = "application/json"

// TimeFormat is RFC 3339 with millisecond precision, always UTC.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// FormatTime renders an instant in the canonical wire format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// NowFormatted returns the current time in the canonical wire format.
func NowFormatted() string {
	return FormatTime(time.Now())
}

// ParseTime parses an instant in either the canonical format or plain RFC 3339.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeFormat, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Schedule lifecycle statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusExecuted   = "executed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// IsTerminalStatus reports whether a status admits no further transitions.
// A failed schedule is not terminal: it may be retried.
func IsTerminalStatus(status string) bool {
	return status == StatusExecuted || status == StatusCancelled
}

// IsValidStatus reports whether status is a known schedule status.
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusProcessing, StatusExecuted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Content types a schedule may target.
const (
	ContentTypeNews        = "news"
	ContentTypeProgram     = "program"
	ContentTypePublication = "publication"
)

// ContentTypes lists every valid content type.
var ContentTypes = []string{ContentTypeNews, ContentTypeProgram, ContentTypePublication}

// IsValidContentType reports whether t is a known content type.
func IsValidContentType(t string) bool {
	switch t {
	case ContentTypeNews, ContentTypeProgram, ContentTypePublication:
		return true
	}
	return false
}

// Actions a schedule may apply.
const (
	ActionPublish   = "publish"
	ActionUnpublish = "unpublish"
	ActionArchive   = "archive"
)

// Actions lists every valid action.
var Actions = []string{ActionPublish, ActionUnpublish, ActionArchive}

// IsValidAction reports whether a is a known action.
func IsValidAction(a string) bool {
	switch a {
	case ActionPublish, ActionUnpublish, ActionArchive:
		return true
	}
	return false
}

// Schedule is a persisted record of a future content-status change and its
// current lifecycle state. Instants are stored as canonical UTC strings;
// Timezone is the caller's IANA zone, kept for display only.
type Schedule struct {
	ID            string          `json:"id"`
	ContentID     string          `json:"content_id"`
	ContentType   string          `json:"content_type"`
	Action        string          `json:"action"`
	ScheduledAt   string          `json:"scheduled_at"`
	Timezone      string          `json:"timezone,omitempty"`
	Status        string          `json:"status"`
	ExecutedAt    string          `json:"executed_at,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	ClaimedAt     string          `json:"claimed_at,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	CancelledAt   string          `json:"cancelled_at,omitempty"`
	CancelledBy   string          `json:"cancelled_by,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// ScheduledTime parses the schedule's target instant.
func (s *Schedule) ScheduledTime() (time.Time, error) {
	return ParseTime(s.ScheduledAt)
}

// TransitionFields carries the fields a conditional status transition may set.
// Only fields relevant to the target status are applied.
type TransitionFields struct {
	ExecutedAt    string
	FailureReason string
	ClaimedAt     string
	CancelledAt   string
	CancelledBy   string
}

// CreateRequest is the payload for scheduling a single content item.
type CreateRequest struct {
	ContentID   string          `json:"content_id"`
	ContentType string          `json:"content_type"`
	Action      string          `json:"action"`
	ScheduledAt string          `json:"scheduled_at"`
	Timezone    string          `json:"timezone,omitempty"`
	CreatedBy   string          `json:"created_by,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// BatchRequest schedules the same action for several content items, offsetting
// the i-th item by i * StaggerIntervalMinutes from the base instant.
type BatchRequest struct {
	ContentIDs             []string        `json:"content_ids"`
	ContentType            string          `json:"content_type"`
	Action                 string          `json:"action"`
	ScheduledAt            string          `json:"scheduled_at"`
	Timezone               string          `json:"timezone,omitempty"`
	CreatedBy              string          `json:"created_by,omitempty"`
	StaggerIntervalMinutes int             `json:"stagger_interval_minutes,omitempty"`
	Metadata               json.RawMessage `json:"metadata,omitempty"`
}

// BatchItemError records a single failed item in a batch request.
type BatchItemError struct {
	ContentID string `json:"content_id"`
	Error     string `json:"error"`
}

// BatchResult aggregates per-item outcomes of a batch request. Items are
// created independently; one failure never rolls back the rest.
type BatchResult struct {
	ScheduledCount int              `json:"scheduled_count"`
	Schedules      []*Schedule      `json:"schedules"`
	Errors         []BatchItemError `json:"errors"`
}

// ListFilter narrows a schedule listing. Zero values match everything.
type ListFilter struct {
	ContentType     string
	Status          string
	Action          string
	ScheduledAfter  string
	ScheduledBefore string
	CreatedBy       string
	Search          string
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// ProcessItemError records a schedule the processor could not execute at all
// (claim machinery aside, e.g. the store was unreachable). Schedules whose
// action itself failed are reported through their stored status instead.
type ProcessItemError struct {
	ScheduleID string `json:"schedule_id"`
	Error      string `json:"error"`
}

// ProcessResult aggregates one pending-processor run.
type ProcessResult struct {
	Processed int                `json:"processed"`
	Errors    []ProcessItemError `json:"errors"`
	Timestamp string             `json:"timestamp"`
}

// ScheduleEvent is published on schedule lifecycle transitions.
type ScheduleEvent struct {
	Type        string `json:"type"`
	ScheduleID  string `json:"schedule_id"`
	ContentID   string `json:"content_id"`
	ContentType string `json:"content_type"`
	Action      string `json:"action"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	At          string `json:"at"`
}

// Schedule event types.
const (
	EventScheduleCreated   = "schedule.created"
	EventScheduleCancelled = "schedule.cancelled"
	EventScheduleExecuted  = "schedule.executed"
	EventScheduleFailed    = "schedule.failed"
)

// BackendHealth describes the storage backend's health.
type BackendHealth struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status        string        `json:"status"`
	Version       string        `json:"version"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Backend       BackendHealth `json:"backend"`
}
