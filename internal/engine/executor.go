package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/newsdeskhq/content-scheduler/internal/core"
	"github.com/newsdeskhq/content-scheduler/internal/metrics"
)

// DefaultExecTimeout bounds a single content mutation.
const DefaultExecTimeout = 30 * time.Second

// Executor applies one due schedule: claim it, mutate the content, record the
// outcome. The claim is a conditional transition, so a schedule is applied at
// most once no matter how many triggers race on it.
type Executor struct {
	store       core.ScheduleStore
	content     core.ContentStore
	clock       core.Clock
	events      core.EventPublisher
	execTimeout time.Duration
}

// NewExecutor creates an Executor. A zero execTimeout falls back to
// DefaultExecTimeout; events may be nil.
func NewExecutor(store core.ScheduleStore, content core.ContentStore, clock core.Clock, events core.EventPublisher, execTimeout time.Duration) *Executor {
	if execTimeout <= 0 {
		execTimeout = DefaultExecTimeout
	}
	return &Executor{
		store:       store,
		content:     content,
		clock:       clock,
		events:      events,
		execTimeout: execTimeout,
	}
}

// Execute claims a pending schedule and applies its action. A lost claim
// (another trigger got there first, or the schedule was cancelled) returns a
// claim_conflict error. Action failures do not surface as an error: the
// schedule moves to failed and the updated record is returned.
func (e *Executor) Execute(ctx context.Context, id string) (*core.Schedule, error) {
	now := e.clock.Now()
	claimed, err := e.store.Transition(ctx, id, core.StatusPending, core.StatusProcessing, core.TransitionFields{
		ClaimedAt: core.FormatTime(now),
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, core.NewClaimConflictError(id)
	}

	return e.resolve(ctx, id)
}

// Retry re-runs a failed schedule. Any other state is rejected with
// invalid_state.
func (e *Executor) Retry(ctx context.Context, id string) (*core.Schedule, error) {
	sched, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sched.Status != core.StatusFailed {
		return nil, core.NewInvalidStateError(
			"Only failed schedules can be retried.",
			map[string]any{"schedule_id": id, "current_status": sched.Status, "expected": core.StatusFailed},
		)
	}

	now := e.clock.Now()
	claimed, err := e.store.Transition(ctx, id, core.StatusFailed, core.StatusProcessing, core.TransitionFields{
		ClaimedAt: core.FormatTime(now),
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, core.NewClaimConflictError(id)
	}

	return e.resolve(ctx, id)
}

// resolve applies the claimed schedule's action and commits the outcome.
func (e *Executor) resolve(ctx context.Context, id string) (*core.Schedule, error) {
	sched, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applyCtx, cancel := context.WithTimeout(ctx, e.execTimeout)
	applyErr := e.content.Apply(applyCtx, sched.ContentType, sched.ContentID, sched.Action, e.clock.Now())
	cancel()

	resolvedAt := core.FormatTime(e.clock.Now())
	if applyErr != nil {
		slog.Warn("schedule execution failed",
			"schedule_id", id,
			"content_type", sched.ContentType,
			"content_id", sched.ContentID,
			"action", sched.Action,
			"error", applyErr,
		)
		ok, err := e.store.Transition(ctx, id, core.StatusProcessing, core.StatusFailed, core.TransitionFields{
			ExecutedAt:    resolvedAt,
			FailureReason: applyErr.Error(),
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			// The reaper requeued the claim mid-flight; the store wins.
			slog.Warn("lost claim before recording failed outcome", "schedule_id", id, "reason", applyErr.Error())
		} else {
			metrics.Executions.WithLabelValues("failed").Inc()
			e.publishOutcome(sched, core.EventScheduleFailed, core.StatusFailed, applyErr.Error(), resolvedAt)
		}
	} else {
		ok, err := e.store.Transition(ctx, id, core.StatusProcessing, core.StatusExecuted, core.TransitionFields{
			ExecutedAt: resolvedAt,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			slog.Warn("lost claim before recording executed outcome", "schedule_id", id)
		} else {
			metrics.Executions.WithLabelValues("executed").Inc()
			e.publishOutcome(sched, core.EventScheduleExecuted, core.StatusExecuted, "", resolvedAt)
		}
	}

	return e.store.Get(ctx, id)
}

func (e *Executor) publishOutcome(s *core.Schedule, eventType, status, reason, at string) {
	if e.events == nil {
		return
	}
	err := e.events.PublishScheduleEvent(&core.ScheduleEvent{
		Type:        eventType,
		ScheduleID:  s.ID,
		ContentID:   s.ContentID,
		ContentType: s.ContentType,
		Action:      s.Action,
		Status:      status,
		Reason:      reason,
		At:          at,
	})
	if err != nil {
		slog.Warn("failed to publish schedule event", "type", eventType, "schedule_id", s.ID, "error", err)
	}
}
