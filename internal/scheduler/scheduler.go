// Package scheduler runs the optional internal trigger: a cron-style loop
// that sweeps due schedules and requeues stalled claims. Deployments that
// drive processing purely through POST /process run without it.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/newsdeskhq/content-scheduler/internal/core"
)

// DefaultTriggerSpec sweeps once a minute.
const DefaultTriggerSpec = "@every 1m"

// DefaultStalledAfter is how long a processing claim may sit before the
// reaper assumes its owner died and requeues the schedule.
const DefaultStalledAfter = 5 * time.Minute

// Scheduler periodically runs the pending processor. Every sweep uses the
// same conditional transitions as the external trigger, so running both at
// once is safe.
type Scheduler struct {
	processor core.PendingProcessor
	store     core.ScheduleStore
	clock     core.Clock

	schedule     cron.Schedule
	stalledAfter time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Scheduler firing per spec, a standard cron expression or a
// descriptor like "@every 30s". An empty spec means DefaultTriggerSpec; a
// non-positive stalledAfter means DefaultStalledAfter.
func New(processor core.PendingProcessor, store core.ScheduleStore, clock core.Clock, spec string, stalledAfter time.Duration) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultTriggerSpec
	}
	if stalledAfter <= 0 {
		stalledAfter = DefaultStalledAfter
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		processor:    processor,
		store:        store,
		clock:        clock,
		schedule:     schedule,
		stalledAfter: stalledAfter,
		stop:         make(chan struct{}),
	}, nil
}

// Start launches the trigger loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	slog.Info("internal trigger started", "stalled_after", s.stalledAfter)
}

// Stop halts the trigger loop and waits for an in-flight sweep to finish.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
			s.sweep()
		}
	}
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.processor.ProcessPending(ctx, time.Time{}); err != nil {
		slog.Error("trigger sweep failed", "error", err)
	}
	s.requeueStalled(ctx)
}
