package core

import (
	"context"
	"time"
)

// ScheduleStore is the durable record of every scheduling request. Transition
// is the only mutation path after creation: a conditional update that commits
// solely when the record's current status matches from, which is what makes
// execution at-most-once.
type ScheduleStore interface {
	Create(ctx context.Context, s *Schedule) error
	Get(ctx context.Context, id string) (*Schedule, error)
	// ListDue returns pending schedules with scheduled_at <= now, earliest first.
	ListDue(ctx context.Context, now time.Time) ([]*Schedule, error)
	ListFiltered(ctx context.Context, filter ListFilter, page, limit int) ([]*Schedule, int, error)
	// Transition returns (false, nil) when the record's status no longer
	// equals from, or when a concurrent writer won the revision race.
	Transition(ctx context.Context, id, from, to string, fields TransitionFields) (bool, error)
}

// ContentStore is the external collaborator that owns content records.
// Apply performs the status mutation for one (contentType, action) pair.
type ContentStore interface {
	Apply(ctx context.Context, contentType, contentID, action string, now time.Time) error
}

// ContentRepository is the read/write surface of the bundled reference
// content store, used to seed and inspect content items.
type ContentRepository interface {
	PutContent(ctx context.Context, item *ContentItem) error
	GetContent(ctx context.Context, contentType, contentID string) (*ContentItem, error)
}

// EventPublisher emits schedule lifecycle events. Publishing is best-effort;
// failures never affect the schedule's stored outcome.
type EventPublisher interface {
	PublishScheduleEvent(event *ScheduleEvent) error
}

// HealthReporter exposes backend health for the health endpoint.
type HealthReporter interface {
	Health(ctx context.Context) (*HealthResponse, error)
}

// SchedulerService is the caller-facing surface for creating and managing
// schedules.
type SchedulerService interface {
	ScheduleContent(ctx context.Context, req *CreateRequest) (*Schedule, error)
	BatchSchedule(ctx context.Context, req *BatchRequest) (*BatchResult, error)
	CancelSchedule(ctx context.Context, id, cancelledBy string) (*Schedule, error)
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	ListSchedules(ctx context.Context, filter ListFilter, page, limit int) ([]*Schedule, *Pagination, error)
}

// ScheduleExecutor applies one schedule's action and resolves its outcome.
type ScheduleExecutor interface {
	Execute(ctx context.Context, id string) (*Schedule, error)
	Retry(ctx context.Context, id string) (*Schedule, error)
}

// PendingProcessor runs the executor over every due schedule.
type PendingProcessor interface {
	ProcessPending(ctx context.Context, now time.Time) (*ProcessResult, error)
}
