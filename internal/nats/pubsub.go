package nats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/newsdeskhq/content-scheduler/internal/core"
)

const (
	eventSchedulePrefix = "sched.events.schedule."
	eventContentPrefix  = "sched.events.content."
	eventAllSubject     = "sched.events.all"
)

func eventScheduleSubject(scheduleID string) string { return eventSchedulePrefix + scheduleID }
func eventContentSubject(contentType string) string { return eventContentPrefix + contentType }

// EventBroker implements core.EventPublisher using NATS core pub/sub.
// Events let the surrounding CMS react to executed or failed schedules
// (cache purges, notifications) without polling the listing API.
type EventBroker struct {
	nc   *nats.Conn
	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewEventBroker creates an EventBroker on the given NATS connection.
func NewEventBroker(nc *nats.Conn) *EventBroker {
	return &EventBroker{nc: nc}
}

// PublishScheduleEvent publishes a schedule event to all relevant subjects.
func (b *EventBroker) PublishScheduleEvent(event *core.ScheduleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.nc.Publish(eventScheduleSubject(event.ScheduleID), data); err != nil {
		slog.Error("failed to publish schedule event", "error", err, "schedule_id", event.ScheduleID)
		return fmt.Errorf("publish event: %w", err)
	}

	if event.ContentType != "" {
		if err := b.nc.Publish(eventContentSubject(event.ContentType), data); err != nil {
			slog.Error("failed to publish content-type event", "error", err, "content_type", event.ContentType)
		}
	}

	if err := b.nc.Publish(eventAllSubject, data); err != nil {
		slog.Error("failed to publish global event", "error", err)
	}

	return nil
}

// SubscribeSchedule subscribes to events for a specific schedule.
func (b *EventBroker) SubscribeSchedule(scheduleID string) (<-chan *core.ScheduleEvent, func(), error) {
	return b.subscribe(eventScheduleSubject(scheduleID))
}

// SubscribeContentType subscribes to events for all schedules of one content type.
func (b *EventBroker) SubscribeContentType(contentType string) (<-chan *core.ScheduleEvent, func(), error) {
	return b.subscribe(eventContentSubject(contentType))
}

// SubscribeAll subscribes to all schedule events.
func (b *EventBroker) SubscribeAll() (<-chan *core.ScheduleEvent, func(), error) {
	return b.subscribe(eventAllSubject)
}

// eventStream guards the subscriber channel: Unsubscribe does not wait for
// an in-flight callback, so the close must be fenced against a late send.
type eventStream struct {
	mu     sync.Mutex
	closed bool
	ch     chan *core.ScheduleEvent
}

func newEventStream(size int) *eventStream {
	return &eventStream{ch: make(chan *core.ScheduleEvent, size)}
}

// send delivers an event unless the stream is closed or full. Returns false
// when the event was dropped.
func (s *eventStream) send(event *core.ScheduleEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

func (s *eventStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (b *EventBroker) subscribe(subject string) (<-chan *core.ScheduleEvent, func(), error) {
	stream := newEventStream(64)

	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		var event core.ScheduleEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Error("failed to unmarshal event", "error", err)
			return
		}
		if !stream.send(&event) {
			slog.Warn("dropping event", "subject", subject)
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	unsubscribe := func() {
		_ = sub.Unsubscribe()
		stream.close()
	}

	return stream.ch, unsubscribe, nil
}

// Close unsubscribes all subscriptions.
func (b *EventBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil
	return nil
}
