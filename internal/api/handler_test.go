package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/newsdeskhq/content-scheduler/internal/core"
)

// mockService implements core.SchedulerService for testing.
type mockService struct {
	scheduleFn func(ctx context.Context, req *core.CreateRequest) (*core.Schedule, error)
	batchFn    func(ctx context.Context, req *core.BatchRequest) (*core.BatchResult, error)
	cancelFn   func(ctx context.Context, id, cancelledBy string) (*core.Schedule, error)
	getFn      func(ctx context.Context, id string) (*core.Schedule, error)
	listFn     func(ctx context.Context, filter core.ListFilter, page, limit int) ([]*core.Schedule, *core.Pagination, error)
}

func (m *mockService) ScheduleContent(ctx context.Context, req *core.CreateRequest) (*core.Schedule, error) {
	if m.scheduleFn != nil {
		return m.scheduleFn(ctx, req)
	}
	return &core.Schedule{
		ID:          "sched-1",
		ContentID:   req.ContentID,
		ContentType: req.ContentType,
		Action:      req.Action,
		ScheduledAt: req.ScheduledAt,
		Status:      core.StatusPending,
	}, nil
}

func (m *mockService) BatchSchedule(ctx context.Context, req *core.BatchRequest) (*core.BatchResult, error) {
	if m.batchFn != nil {
		return m.batchFn(ctx, req)
	}
	result := &core.BatchResult{Errors: []core.BatchItemError{}}
	for _, id := range req.ContentIDs {
		result.Schedules = append(result.Schedules, &core.Schedule{ID: "sched-" + id, ContentID: id, Status: core.StatusPending})
		result.ScheduledCount++
	}
	return result, nil
}

func (m *mockService) CancelSchedule(ctx context.Context, id, cancelledBy string) (*core.Schedule, error) {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, id, cancelledBy)
	}
	return &core.Schedule{ID: id, Status: core.StatusCancelled, CancelledBy: cancelledBy}, nil
}

func (m *mockService) GetSchedule(ctx context.Context, id string) (*core.Schedule, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, core.NewNotFoundError("Schedule", id)
}

func (m *mockService) ListSchedules(ctx context.Context, filter core.ListFilter, page, limit int) ([]*core.Schedule, *core.Pagination, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter, page, limit)
	}
	return []*core.Schedule{}, &core.Pagination{Page: 1, Limit: 20}, nil
}

// mockExecutor implements core.ScheduleExecutor for testing.
type mockExecutor struct {
	executeFn func(ctx context.Context, id string) (*core.Schedule, error)
	retryFn   func(ctx context.Context, id string) (*core.Schedule, error)
}

func (m *mockExecutor) Execute(ctx context.Context, id string) (*core.Schedule, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, id)
	}
	return &core.Schedule{ID: id, Status: core.StatusExecuted}, nil
}

func (m *mockExecutor) Retry(ctx context.Context, id string) (*core.Schedule, error) {
	if m.retryFn != nil {
		return m.retryFn(ctx, id)
	}
	return &core.Schedule{ID: id, Status: core.StatusExecuted}, nil
}

// mockProcessor implements core.PendingProcessor for testing.
type mockProcessor struct {
	processFn func(ctx context.Context, now time.Time) (*core.ProcessResult, error)
}

func (m *mockProcessor) ProcessPending(ctx context.Context, now time.Time) (*core.ProcessResult, error) {
	if m.processFn != nil {
		return m.processFn(ctx, now)
	}
	return &core.ProcessResult{Errors: []core.ProcessItemError{}, Timestamp: core.FormatTime(now)}, nil
}

// mockRepo implements core.ContentRepository for testing.
type mockRepo struct {
	putFn func(ctx context.Context, item *core.ContentItem) error
	getFn func(ctx context.Context, contentType, contentID string) (*core.ContentItem, error)
}

func (m *mockRepo) PutContent(ctx context.Context, item *core.ContentItem) error {
	if m.putFn != nil {
		return m.putFn(ctx, item)
	}
	return nil
}

func (m *mockRepo) GetContent(ctx context.Context, contentType, contentID string) (*core.ContentItem, error) {
	if m.getFn != nil {
		return m.getFn(ctx, contentType, contentID)
	}
	return &core.ContentItem{ID: contentID, Type: contentType, Status: core.ContentDraft}, nil
}

// mockHealth implements core.HealthReporter for testing.
type mockHealth struct {
	healthFn func(ctx context.Context) (*core.HealthResponse, error)
}

func (m *mockHealth) Health(ctx context.Context) (*core.HealthResponse, error) {
	if m.healthFn != nil {
		return m.healthFn(ctx)
	}
	return &core.HealthResponse{Status: "ok", Version: core.EngineVersion}, nil
}

type testDeps struct {
	svc    core.SchedulerService
	exec   core.ScheduleExecutor
	proc   core.PendingProcessor
	repo   core.ContentRepository
	health core.HealthReporter
}

func newTestRouter(deps testDeps) http.Handler {
	if deps.svc == nil {
		deps.svc = &mockService{}
	}
	if deps.exec == nil {
		deps.exec = &mockExecutor{}
	}
	if deps.proc == nil {
		deps.proc = &mockProcessor{}
	}
	if deps.repo == nil {
		deps.repo = &mockRepo{}
	}
	if deps.health == nil {
		deps.health = &mockHealth{}
	}

	schedules := NewScheduleHandler(deps.svc, deps.exec)
	process := NewProcessHandler(deps.proc)
	content := NewContentHandler(deps.repo)
	system := NewSystemHandler(deps.health)

	r := chi.NewRouter()
	r.Use(Headers)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", system.Health)
		r.Get("/info", system.Info)
		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", schedules.Create)
			r.Get("/", schedules.List)
			r.Post("/batch", schedules.CreateBatch)
			r.Get("/{id}", schedules.Get)
			r.Post("/{id}/cancel", schedules.Cancel)
			r.Post("/{id}/retry", schedules.Retry)
		})
		r.Post("/process", process.Process)
		r.Route("/content", func(r chi.Router) {
			r.Put("/{type}/{id}", content.Put)
			r.Get("/{type}/{id}", content.Get)
		})
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestScheduleCreate(t *testing.T) {
	router := newTestRouter(testDeps{})

	rec := doRequest(t, router, http.MethodPost, "/v1/schedules",
		`{"content_id":"article-1","content_type":"news","action":"publish","scheduled_at":"2027-01-01T09:00:00.000Z"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/v1/schedules/sched-1" {
		t.Errorf("Location = %q", loc)
	}
	resp := decodeBody(t, rec)
	sched, ok := resp["schedule"].(map[string]any)
	if !ok {
		t.Fatalf("response missing schedule envelope: %v", resp)
	}
	if sched["status"] != core.StatusPending {
		t.Errorf("status = %v, want pending", sched["status"])
	}
}

func TestScheduleCreateInvalidJSON(t *testing.T) {
	router := newTestRouter(testDeps{})

	rec := doRequest(t, router, http.MethodPost, "/v1/schedules", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestScheduleCreateValidationError(t *testing.T) {
	svc := &mockService{
		scheduleFn: func(ctx context.Context, req *core.CreateRequest) (*core.Schedule, error) {
			return nil, core.NewValidationError("Field 'scheduled_at' must be in the future.", nil)
		},
	}
	router := newTestRouter(testDeps{svc: svc})

	rec := doRequest(t, router, http.MethodPost, "/v1/schedules",
		`{"content_id":"a","content_type":"news","action":"publish","scheduled_at":"2020-01-01T09:00:00.000Z"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if resp.Error.Code != core.ErrCodeValidation {
		t.Errorf("code = %q, want %q", resp.Error.Code, core.ErrCodeValidation)
	}
}

func TestScheduleGet(t *testing.T) {
	svc := &mockService{
		getFn: func(ctx context.Context, id string) (*core.Schedule, error) {
			return &core.Schedule{ID: id, Status: core.StatusExecuted}, nil
		},
	}
	router := newTestRouter(testDeps{svc: svc})

	rec := doRequest(t, router, http.MethodGet, "/v1/schedules/sched-42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeBody(t, rec)
	sched := resp["schedule"].(map[string]any)
	if sched["id"] != "sched-42" {
		t.Errorf("id = %v", sched["id"])
	}
}

func TestScheduleGetNotFound(t *testing.T) {
	router := newTestRouter(testDeps{})

	rec := doRequest(t, router, http.MethodGet, "/v1/schedules/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestScheduleList(t *testing.T) {
	var gotFilter core.ListFilter
	var gotPage, gotLimit int
	svc := &mockService{
		listFn: func(ctx context.Context, filter core.ListFilter, page, limit int) ([]*core.Schedule, *core.Pagination, error) {
			gotFilter, gotPage, gotLimit = filter, page, limit
			return []*core.Schedule{{ID: "sched-1"}}, &core.Pagination{Page: page, Limit: limit, TotalCount: 1, TotalPages: 1}, nil
		},
	}
	router := newTestRouter(testDeps{svc: svc})

	rec := doRequest(t, router, http.MethodGet, "/v1/schedules?status=pending&content_type=news&page=2&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if gotFilter.Status != core.StatusPending || gotFilter.ContentType != core.ContentTypeNews {
		t.Errorf("filter = %+v", gotFilter)
	}
	if gotPage != 2 || gotLimit != 5 {
		t.Errorf("page/limit = %d/%d, want 2/5", gotPage, gotLimit)
	}
	resp := decodeBody(t, rec)
	if _, ok := resp["schedules"]; !ok {
		t.Error("response missing schedules")
	}
	if _, ok := resp["pagination"]; !ok {
		t.Error("response missing pagination")
	}
}

func TestScheduleCancel(t *testing.T) {
	var gotCancelledBy string
	svc := &mockService{
		cancelFn: func(ctx context.Context, id, cancelledBy string) (*core.Schedule, error) {
			gotCancelledBy = cancelledBy
			return &core.Schedule{ID: id, Status: core.StatusCancelled, CancelledBy: cancelledBy}, nil
		},
	}
	router := newTestRouter(testDeps{svc: svc})

	rec := doRequest(t, router, http.MethodPost, "/v1/schedules/sched-1/cancel", `{"cancelled_by":"editor@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotCancelledBy != "editor@example.com" {
		t.Errorf("cancelled_by = %q", gotCancelledBy)
	}
}

func TestScheduleCancelEmptyBody(t *testing.T) {
	router := newTestRouter(testDeps{
		svc: &mockService{
			cancelFn: func(ctx context.Context, id, cancelledBy string) (*core.Schedule, error) {
				return &core.Schedule{ID: id, Status: core.StatusCancelled}, nil
			},
		},
	})

	rec := doRequest(t, router, http.MethodPost, "/v1/schedules/sched-1/cancel", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for empty body", rec.Code)
	}
}

func TestScheduleCancelInvalidState(t *testing.T) {
	svc := &mockService{
		cancelFn: func(ctx context.Context, id, cancelledBy string) (*core.Schedule, error) {
			return nil, core.NewInvalidStateError("Cannot cancel schedule in state 'executed'.", nil)
		},
	}
	router := newTestRouter(testDeps{svc: svc})

	rec := doRequest(t, router, http.MethodPost, "/v1/schedules/sched-1/cancel", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestScheduleRetry(t *testing.T) {
	router := newTestRouter(testDeps{})

	rec := doRequest(t, router, http.MethodPost, "/v1/schedules/sched-1/retry", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeBody(t, rec)
	sched := resp["schedule"].(map[string]any)
	if sched["status"] != core.StatusExecuted {
		t.Errorf("status = %v, want executed", sched["status"])
	}
}

func TestBatchCreate(t *testing.T) {
	router := newTestRouter(testDeps{})

	rec := doRequest(t, router, http.MethodPost, "/v1/schedules/batch",
		`{"content_ids":["a","b"],"content_type":"news","action":"publish","scheduled_at":"2027-01-01T09:00:00.000Z"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["scheduled_count"] != float64(2) {
		t.Errorf("scheduled_count = %v, want 2", resp["scheduled_count"])
	}
}

func TestProcess(t *testing.T) {
	var gotNow time.Time
	proc := &mockProcessor{
		processFn: func(ctx context.Context, now time.Time) (*core.ProcessResult, error) {
			gotNow = now
			return &core.ProcessResult{Processed: 3, Errors: []core.ProcessItemError{}, Timestamp: core.FormatTime(now)}, nil
		},
	}
	router := newTestRouter(testDeps{proc: proc})

	rec := doRequest(t, router, http.MethodPost, "/v1/process", `{"now":"2026-06-01T12:00:00.000Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	want := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	if !gotNow.Equal(want) {
		t.Errorf("now = %v, want %v", gotNow, want)
	}
	resp := decodeBody(t, rec)
	if resp["processed"] != float64(3) {
		t.Errorf("processed = %v, want 3", resp["processed"])
	}
}

func TestProcessEmptyBody(t *testing.T) {
	var gotNow time.Time
	proc := &mockProcessor{
		processFn: func(ctx context.Context, now time.Time) (*core.ProcessResult, error) {
			gotNow = now
			return &core.ProcessResult{Errors: []core.ProcessItemError{}}, nil
		},
	}
	router := newTestRouter(testDeps{proc: proc})

	rec := doRequest(t, router, http.MethodPost, "/v1/process", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !gotNow.IsZero() {
		t.Errorf("now = %v, want zero (processor falls back to its clock)", gotNow)
	}
}

func TestProcessBadNow(t *testing.T) {
	router := newTestRouter(testDeps{})

	rec := doRequest(t, router, http.MethodPost, "/v1/process", `{"now":"tomorrow"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestContentPut(t *testing.T) {
	var gotItem *core.ContentItem
	repo := &mockRepo{
		putFn: func(ctx context.Context, item *core.ContentItem) error {
			gotItem = item
			return nil
		},
	}
	router := newTestRouter(testDeps{repo: repo})

	rec := doRequest(t, router, http.MethodPut, "/v1/content/news/article-1", `{"title":"Launch day"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if gotItem.Type != "news" || gotItem.ID != "article-1" {
		t.Errorf("path params not applied: %+v", gotItem)
	}
	if gotItem.Title != "Launch day" {
		t.Errorf("title = %q", gotItem.Title)
	}
}

func TestContentGetNotFound(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, contentType, contentID string) (*core.ContentItem, error) {
			return nil, core.NewContentNotFoundError(contentType, contentID)
		},
	}
	router := newTestRouter(testDeps{repo: repo})

	rec := doRequest(t, router, http.MethodGet, "/v1/content/news/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthDegraded(t *testing.T) {
	health := &mockHealth{
		healthFn: func(ctx context.Context) (*core.HealthResponse, error) {
			return &core.HealthResponse{Status: "degraded"}, context.DeadlineExceeded
		},
	}
	router := newTestRouter(testDeps{health: health})

	rec := doRequest(t, router, http.MethodGet, "/v1/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestInfo(t *testing.T) {
	router := newTestRouter(testDeps{})

	rec := doRequest(t, router, http.MethodGet, "/v1/info", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeBody(t, rec)
	if resp["version"] != core.EngineVersion {
		t.Errorf("version = %v", resp["version"])
	}
}
