package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/newsdeskhq/content-scheduler/internal/core"
)

// memStore is an in-memory core.ScheduleStore with the same conditional
// transition semantics as the KV backend.
type memStore struct {
	mu        sync.Mutex
	schedules map[string]*core.Schedule

	// Optional overrides for fault injection.
	listDueFn    func(ctx context.Context, now time.Time) ([]*core.Schedule, error)
	transitionFn func(ctx context.Context, id, from, to string, fields core.TransitionFields) (bool, error)
}

func newMemStore() *memStore {
	return &memStore{schedules: make(map[string]*core.Schedule)}
}

func (m *memStore) Create(ctx context.Context, s *core.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[s.ID]; ok {
		return core.NewInternalError("schedule id collision: " + s.ID)
	}
	clone := *s
	m.schedules[s.ID] = &clone
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*core.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, core.NewNotFoundError("Schedule", id)
	}
	clone := *s
	return &clone, nil
}

func (m *memStore) ListDue(ctx context.Context, now time.Time) ([]*core.Schedule, error) {
	if m.listDueFn != nil {
		return m.listDueFn(ctx, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*core.Schedule
	for _, s := range m.schedules {
		if s.Status != core.StatusPending {
			continue
		}
		at, err := s.ScheduledTime()
		if err != nil || at.After(now) {
			continue
		}
		clone := *s
		due = append(due, &clone)
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduledAt != due[j].ScheduledAt {
			return due[i].ScheduledAt < due[j].ScheduledAt
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

func (m *memStore) ListFiltered(ctx context.Context, filter core.ListFilter, page, limit int) ([]*core.Schedule, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*core.Schedule
	for _, s := range m.schedules {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.ContentType != "" && s.ContentType != filter.ContentType {
			continue
		}
		if filter.Action != "" && s.Action != filter.Action {
			continue
		}
		clone := *s
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ScheduledAt != matched[j].ScheduledAt {
			return matched[i].ScheduledAt < matched[j].ScheduledAt
		}
		return matched[i].ID < matched[j].ID
	})
	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return []*core.Schedule{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *memStore) Transition(ctx context.Context, id, from, to string, fields core.TransitionFields) (bool, error) {
	if m.transitionFn != nil {
		return m.transitionFn(ctx, id, from, to, fields)
	}
	return m.transition(ctx, id, from, to, fields)
}

func (m *memStore) transition(ctx context.Context, id, from, to string, fields core.TransitionFields) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return false, core.NewNotFoundError("Schedule", id)
	}
	if s.Status != from {
		return false, nil
	}
	s.Status = to
	switch to {
	case core.StatusProcessing:
		s.ClaimedAt = fields.ClaimedAt
	case core.StatusExecuted:
		s.ExecutedAt = fields.ExecutedAt
		s.FailureReason = ""
		s.ClaimedAt = ""
	case core.StatusFailed:
		s.ExecutedAt = fields.ExecutedAt
		s.FailureReason = fields.FailureReason
		s.ClaimedAt = ""
	case core.StatusCancelled:
		s.CancelledAt = fields.CancelledAt
		s.CancelledBy = fields.CancelledBy
	case core.StatusPending:
		s.ClaimedAt = ""
	}
	return true, nil
}

// memContent is an in-memory core.ContentStore recording every apply.
type memContent struct {
	mu      sync.Mutex
	items   map[string]*core.ContentItem
	applies []string

	applyFn func(ctx context.Context, contentType, contentID, action string, now time.Time) error
}

func newMemContent() *memContent {
	return &memContent{items: make(map[string]*core.ContentItem)}
}

func (m *memContent) put(item *core.ContentItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.Type+"."+item.ID] = item
}

func (m *memContent) get(contentType, contentID string) *core.ContentItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[contentType+"."+contentID]
}

func (m *memContent) applyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applies)
}

func (m *memContent) Apply(ctx context.Context, contentType, contentID, action string, now time.Time) error {
	if m.applyFn != nil {
		return m.applyFn(ctx, contentType, contentID, action, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[contentType+"."+contentID]
	if !ok {
		return core.NewContentNotFoundError(contentType, contentID)
	}
	switch action {
	case core.ActionPublish:
		item.Status = core.ContentPublished
		if item.PublishedAt == "" {
			item.PublishedAt = core.FormatTime(now)
		}
	case core.ActionUnpublish:
		item.Status = core.ContentDraft
	case core.ActionArchive:
		item.Status = core.ContentArchived
		item.ArchivedAt = core.FormatTime(now)
	}
	item.UpdatedAt = core.FormatTime(now)
	m.applies = append(m.applies, contentType+"."+contentID+":"+action)
	return nil
}

// memEvents records published events.
type memEvents struct {
	mu     sync.Mutex
	events []*core.ScheduleEvent
}

func (m *memEvents) PublishScheduleEvent(event *core.ScheduleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memEvents) byType(eventType string) []*core.ScheduleEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core.ScheduleEvent
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
