// Package engine implements the scheduling semantics: the caller-facing
// service, the executor that applies one due schedule, and the pending
// processor driven by the external trigger.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/newsdeskhq/content-scheduler/internal/core"
	"github.com/newsdeskhq/content-scheduler/internal/metrics"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Service is the caller-facing surface for creating and managing schedules.
type Service struct {
	store  core.ScheduleStore
	clock  core.Clock
	events core.EventPublisher
}

// NewService creates a Service. events may be nil.
func NewService(store core.ScheduleStore, clock core.Clock, events core.EventPublisher) *Service {
	return &Service{store: store, clock: clock, events: events}
}

// ScheduleContent creates a single schedule. The scheduled instant must be
// strictly in the future at creation time.
func (s *Service) ScheduleContent(ctx context.Context, req *core.CreateRequest) (*core.Schedule, error) {
	now := s.clock.Now()
	if err := core.ValidateCreateRequest(req, now); err != nil {
		return nil, err
	}

	scheduledAt, err := core.ParseTime(req.ScheduledAt)
	if err != nil {
		// Unreachable after validation; belt and braces for direct callers.
		return nil, core.NewValidationError("Field 'scheduled_at' is not a valid timestamp.", nil)
	}

	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}

	sched := &core.Schedule{
		ID:          core.NewUUIDv7(),
		ContentID:   req.ContentID,
		ContentType: req.ContentType,
		Action:      req.Action,
		ScheduledAt: core.FormatTime(scheduledAt),
		Timezone:    tz,
		Status:      core.StatusPending,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   core.FormatTime(now),
		Metadata:    req.Metadata,
	}

	if err := s.store.Create(ctx, sched); err != nil {
		return nil, err
	}

	metrics.SchedulesCreated.Inc()
	s.publish(&core.ScheduleEvent{
		Type:        core.EventScheduleCreated,
		ScheduleID:  sched.ID,
		ContentID:   sched.ContentID,
		ContentType: sched.ContentType,
		Action:      sched.Action,
		Status:      sched.Status,
		At:          core.FormatTime(now),
	})

	return sched, nil
}

// BatchSchedule creates one schedule per content id, offsetting the i-th item
// by i * StaggerIntervalMinutes. Items are created independently: a failure
// on one is recorded and the rest proceed.
func (s *Service) BatchSchedule(ctx context.Context, req *core.BatchRequest) (*core.BatchResult, error) {
	now := s.clock.Now()
	if err := core.ValidateBatchRequest(req, now); err != nil {
		return nil, err
	}

	base, err := core.ParseTime(req.ScheduledAt)
	if err != nil {
		return nil, core.NewValidationError("Field 'scheduled_at' is not a valid timestamp.", nil)
	}
	stagger := time.Duration(req.StaggerIntervalMinutes) * time.Minute

	result := &core.BatchResult{
		Schedules: make([]*core.Schedule, 0, len(req.ContentIDs)),
		Errors:    []core.BatchItemError{},
	}

	for i, contentID := range req.ContentIDs {
		effective := base.Add(time.Duration(i) * stagger)
		item := &core.CreateRequest{
			ContentID:   contentID,
			ContentType: req.ContentType,
			Action:      req.Action,
			ScheduledAt: core.FormatTime(effective),
			Timezone:    req.Timezone,
			CreatedBy:   req.CreatedBy,
			Metadata:    req.Metadata,
		}

		sched, err := s.ScheduleContent(ctx, item)
		if err != nil {
			result.Errors = append(result.Errors, core.BatchItemError{
				ContentID: contentID,
				Error:     err.Error(),
			})
			continue
		}
		result.Schedules = append(result.Schedules, sched)
		result.ScheduledCount++
	}

	return result, nil
}

// CancelSchedule transitions a pending schedule to cancelled. A schedule in
// any other state is rejected with invalid_state; losing the race against an
// executor claiming the same schedule reports the same way.
func (s *Service) CancelSchedule(ctx context.Context, id, cancelledBy string) (*core.Schedule, error) {
	sched, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sched.Status != core.StatusPending {
		return nil, invalidStateError("cancel", sched)
	}

	now := s.clock.Now()
	ok, err := s.store.Transition(ctx, id, core.StatusPending, core.StatusCancelled, core.TransitionFields{
		CancelledAt: core.FormatTime(now),
		CancelledBy: cancelledBy,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race: re-read so the error reports the winning state.
		current, getErr := s.store.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, invalidStateError("cancel", current)
	}

	updated, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(&core.ScheduleEvent{
		Type:        core.EventScheduleCancelled,
		ScheduleID:  updated.ID,
		ContentID:   updated.ContentID,
		ContentType: updated.ContentType,
		Action:      updated.Action,
		Status:      updated.Status,
		At:          core.FormatTime(now),
	})

	return updated, nil
}

// GetSchedule retrieves a schedule by id.
func (s *Service) GetSchedule(ctx context.Context, id string) (*core.Schedule, error) {
	return s.store.Get(ctx, id)
}

// ListSchedules returns one page of schedules matching the filter.
func (s *Service) ListSchedules(ctx context.Context, filter core.ListFilter, page, limit int) ([]*core.Schedule, *core.Pagination, error) {
	if err := core.ValidateListFilter(&filter); err != nil {
		return nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	schedules, total, err := s.store.ListFiltered(ctx, filter, page, limit)
	if err != nil {
		return nil, nil, err
	}

	pagination := &core.Pagination{
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: (total + limit - 1) / limit,
	}
	return schedules, pagination, nil
}

func (s *Service) publish(event *core.ScheduleEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishScheduleEvent(event); err != nil {
		slog.Warn("failed to publish schedule event", "type", event.Type, "schedule_id", event.ScheduleID, "error", err)
	}
}

func invalidStateError(op string, s *core.Schedule) *core.SchedError {
	return core.NewInvalidStateError(
		fmt.Sprintf("Cannot %s schedule in state '%s'.", op, s.Status),
		map[string]any{
			"schedule_id":    s.ID,
			"current_status": s.Status,
			"expected":       core.StatusPending,
		},
	)
}
