package scheduler

import (
	"context"
	"log/slog"

	"github.com/newsdeskhq/content-scheduler/internal/core"
)

// reaperPageLimit bounds one sweep; anything left is picked up next sweep.
const reaperPageLimit = 1000

// requeueStalled returns schedules whose processing claim outlived
// stalledAfter to pending. A claim goes stale when its owner crashed between
// claiming and resolving; the conditional transition means a still-live owner
// finishing concurrently wins and the requeue is a no-op.
func (s *Scheduler) requeueStalled(ctx context.Context) {
	stalled, _, err := s.store.ListFiltered(ctx, core.ListFilter{Status: core.StatusProcessing}, 1, reaperPageLimit)
	if err != nil {
		slog.Error("failed to list processing schedules", "error", err)
		return
	}

	now := s.clock.Now()
	requeued := 0
	for _, sched := range stalled {
		claimedAt, err := core.ParseTime(sched.ClaimedAt)
		if err != nil {
			// Unparseable claim: treat it as stale.
			claimedAt = now.Add(-s.stalledAfter)
		}
		if now.Sub(claimedAt) < s.stalledAfter {
			continue
		}

		ok, err := s.store.Transition(ctx, sched.ID, core.StatusProcessing, core.StatusPending, core.TransitionFields{})
		if err != nil {
			slog.Error("failed to requeue stalled schedule", "schedule_id", sched.ID, "error", err)
			continue
		}
		if ok {
			requeued++
			slog.Warn("requeued stalled schedule", "schedule_id", sched.ID, "claimed_at", sched.ClaimedAt)
		}
	}

	if requeued > 0 {
		slog.Info("stalled-claim sweep complete", "requeued", requeued)
	}
}
