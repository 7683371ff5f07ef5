package nats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/newsdeskhq/content-scheduler/internal/core"
	"github.com/newsdeskhq/content-scheduler/internal/kv"
)

// Backend implements core.ScheduleStore on NATS JetStream KV. The KV revision
// number backs the conditional Transition: two writers racing on the same
// schedule see exactly one revision match.
type Backend struct {
	nc *nats.Conn
	js jetstream.JetStream

	schedules *kv.Store
	pending   *kv.Store
	content   *kv.Store

	startTime time.Time
}

// New creates a Backend, connecting to NATS and setting up the KV buckets.
func New(natsURL string) (*Backend, error) {
	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := SetupKV(ctx, js); err != nil {
		nc.Close()
		return nil, fmt.Errorf("setting up KV buckets: %w", err)
	}

	openKV := func(name string) (jetstream.KeyValue, error) {
		bucket, err := js.KeyValue(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("opening KV bucket %s: %w", name, err)
		}
		return bucket, nil
	}

	schedulesKV, err := openKV(BucketSchedules)
	if err != nil {
		nc.Close()
		return nil, err
	}
	pendingKV, err := openKV(BucketPending)
	if err != nil {
		nc.Close()
		return nil, err
	}
	contentKV, err := openKV(BucketContent)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Backend{
		nc:        nc,
		js:        js,
		schedules: kv.NewStore(schedulesKV),
		pending:   kv.NewStore(pendingKV),
		content:   kv.NewStore(contentKV),
		startTime: time.Now(),
	}, nil
}

// Conn returns the underlying NATS connection for use by auxiliary services
// (e.g., the event broker).
func (b *Backend) Conn() *nats.Conn {
	return b.nc
}

func (b *Backend) Close() error {
	b.nc.Close()
	return nil
}

// Create stores a new schedule record and indexes it as pending.
func (b *Backend) Create(ctx context.Context, s *core.Schedule) error {
	if _, err := b.schedules.CreateJSON(ctx, s.ID, s); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return core.NewInternalError(fmt.Sprintf("schedule id collision: %s", s.ID))
		}
		return fmt.Errorf("store schedule %s: %w", s.ID, err)
	}
	if _, err := b.pending.Put(ctx, s.ID, []byte(s.ScheduledAt)); err != nil {
		return fmt.Errorf("index pending schedule %s: %w", s.ID, err)
	}
	return nil
}

// Get retrieves a schedule by id.
func (b *Backend) Get(ctx context.Context, id string) (*core.Schedule, error) {
	var s core.Schedule
	if _, err := b.schedules.GetJSON(ctx, id, &s); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, core.NewNotFoundError("Schedule", id)
		}
		return nil, fmt.Errorf("get schedule %s: %w", id, err)
	}
	return &s, nil
}

// ListDue returns pending schedules whose scheduled instant is at or before
// now, ordered earliest first for a deterministic processing order.
func (b *Backend) ListDue(ctx context.Context, now time.Time) ([]*core.Schedule, error) {
	ids, err := b.pending.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending index: %w", err)
	}

	var due []*core.Schedule
	for _, id := range ids {
		data, _, err := b.pending.Get(ctx, id)
		if err != nil {
			continue
		}
		scheduledAt, err := core.ParseTime(string(data))
		if err != nil {
			continue
		}
		if scheduledAt.After(now) {
			continue
		}

		s, err := b.Get(ctx, id)
		if err != nil {
			// Index entry without a record: drop it.
			b.pending.Delete(ctx, id)
			continue
		}
		// The index can lag a transition briefly; the record is authoritative.
		if s.Status != core.StatusPending {
			b.pending.Delete(ctx, id)
			continue
		}
		due = append(due, s)
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduledAt != due[j].ScheduledAt {
			return due[i].ScheduledAt < due[j].ScheduledAt
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

// ListFiltered returns one page of schedules matching the filter, plus the
// total match count. Results are ordered by scheduled instant ascending.
func (b *Backend) ListFiltered(ctx context.Context, filter core.ListFilter, page, limit int) ([]*core.Schedule, int, error) {
	ids, err := b.schedules.Keys(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	var matched []*core.Schedule
	for _, id := range ids {
		var s core.Schedule
		if _, err := b.schedules.GetJSON(ctx, id, &s); err != nil {
			continue
		}
		if matchesFilter(&s, filter) {
			matched = append(matched, &s)
		}
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

// Transition conditionally moves a schedule from one status to another.
// Returns (false, nil) when the current status does not equal from or a
// concurrent writer won the revision race; the caller decides whether that
// means "skip" (processor) or "invalid state" (cancel/retry).
func (b *Backend) Transition(ctx context.Context, id, from, to string, fields core.TransitionFields) (bool, error) {
	var s core.Schedule
	rev, err := b.schedules.GetJSON(ctx, id, &s)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return false, core.NewNotFoundError("Schedule", id)
		}
		return false, fmt.Errorf("get schedule %s: %w", id, err)
	}

	if s.Status != from {
		return false, nil
	}

	s.Status = to
	applyTransitionFields(&s, to, fields)

	if _, err := b.schedules.UpdateJSON(ctx, id, &s, rev); err != nil {
		if isRevisionMismatch(err) {
			return false, nil
		}
		return false, fmt.Errorf("update schedule %s: %w", id, err)
	}

	// Maintain the due index.
	if from == core.StatusPending && to != core.StatusPending {
		b.pending.Delete(ctx, id)
	}
	if to == core.StatusPending && from != core.StatusPending {
		b.pending.Put(ctx, id, []byte(s.ScheduledAt))
	}

	return true, nil
}

func applyTransitionFields(s *core.Schedule, to string, fields core.TransitionFields) {
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
		// Requeue (stalled-claim recovery): clear the stale claim.
		s.ClaimedAt = ""
	}
}

func isRevisionMismatch(err error) bool {
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}
	return false
}

func matchesFilter(s *core.Schedule, f core.ListFilter) bool {
	if f.ContentType != "" && s.ContentType != f.ContentType {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Action != "" && s.Action != f.Action {
		return false
	}
	if f.CreatedBy != "" && s.CreatedBy != f.CreatedBy {
		return false
	}
	if f.ScheduledAfter != "" && s.ScheduledAt < canonicalize(f.ScheduledAfter) {
		return false
	}
	if f.ScheduledBefore != "" && s.ScheduledAt > canonicalize(f.ScheduledBefore) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystack := strings.ToLower(s.ID + " " + s.ContentID + " " + s.CreatedBy + " " + string(s.Metadata))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

// canonicalize re-renders a caller-supplied timestamp in the stored format so
// string comparison equals instant comparison.
func canonicalize(value string) string {
	t, err := core.ParseTime(value)
	if err != nil {
		return value
	}
	return core.FormatTime(t)
}

// Health returns the health status of the NATS backend.
func (b *Backend) Health(ctx context.Context) (*core.HealthResponse, error) {
	resp := &core.HealthResponse{
		Version:       core.EngineVersion,
		UptimeSeconds: int64(time.Since(b.startTime).Seconds()),
	}

	status := b.nc.Status()
	if status != nats.CONNECTED {
		resp.Status = "degraded"
		resp.Backend = core.BackendHealth{
			Type:   "nats",
			Status: "disconnected",
			Error:  fmt.Sprintf("NATS status: %v", status),
		}
		return resp, fmt.Errorf("NATS not connected")
	}

	// Measure actual NATS RTT with a KV operation
	start := time.Now()
	b.schedules.Exists(ctx, "_health_check")
	latency := time.Since(start).Milliseconds()

	resp.Status = "ok"
	resp.Backend = core.BackendHealth{
		Type:      "nats",
		Status:    "connected",
		LatencyMs: latency,
	}
	return resp, nil
}
