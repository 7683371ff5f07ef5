package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/newsdeskhq/content-scheduler/internal/core"
	"github.com/newsdeskhq/content-scheduler/internal/metrics"
)

// Processor runs the executor over every due schedule. One bad schedule never
// stops the sweep: failures are recorded per item and the run continues.
type Processor struct {
	store    core.ScheduleStore
	executor core.ScheduleExecutor
	clock    core.Clock
}

// NewProcessor creates a Processor.
func NewProcessor(store core.ScheduleStore, executor core.ScheduleExecutor, clock core.Clock) *Processor {
	return &Processor{store: store, executor: executor, clock: clock}
}

// ProcessPending executes every schedule due at now. A zero now means the
// clock's current time; passing an explicit instant lets operators replay a
// window. Processed counts schedules this run drove to a stored outcome,
// executed or failed. Lost claims are another trigger's work and are skipped
// silently.
func (p *Processor) ProcessPending(ctx context.Context, now time.Time) (*core.ProcessResult, error) {
	if now.IsZero() {
		now = p.clock.Now()
	}

	start := time.Now()
	metrics.ProcessorRuns.Inc()
	defer func() {
		metrics.ProcessorDuration.Observe(time.Since(start).Seconds())
	}()

	due, err := p.store.ListDue(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &core.ProcessResult{
		Errors:    []core.ProcessItemError{},
		Timestamp: core.FormatTime(now),
	}

	for _, sched := range due {
		_, err := p.executor.Execute(ctx, sched.ID)
		if err != nil {
			var schedErr *core.SchedError
			if errors.As(err, &schedErr) && schedErr.Code == core.ErrCodeClaimConflict {
				continue
			}
			slog.Error("failed to process due schedule", "schedule_id", sched.ID, "error", err)
			result.Errors = append(result.Errors, core.ProcessItemError{
				ScheduleID: sched.ID,
				Error:      err.Error(),
			})
			continue
		}
		result.Processed++
	}

	if result.Processed > 0 || len(result.Errors) > 0 {
		slog.Info("processed pending schedules",
			"due", len(due),
			"processed", result.Processed,
			"errors", len(result.Errors),
		)
	}

	return result, nil
}
