package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven/mocks"
	"github.com/storewatch-labs/storewatch-core/internal/core/services"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

type serverFixture struct {
	sources   *mocks.MockSourceStore
	listings  *mocks.MockListingStore
	states    *mocks.MockSyncStateStore
	changeLog *mocks.MockChangeLogStore
	factory   *mocks.MockCollectorFactory
	queue     *mocks.MockTaskQueue
	db        *stubPinger
	server    *Server
}

func newServerFixture() *serverFixture {
	f := &serverFixture{
		sources:   mocks.NewMockSourceStore(),
		listings:  mocks.NewMockListingStore(),
		states:    mocks.NewMockSyncStateStore(),
		changeLog: mocks.NewMockChangeLogStore(),
		factory:   mocks.NewMockCollectorFactory(),
		queue:     mocks.NewMockTaskQueue(),
		db:        &stubPinger{},
	}

	sourceService := services.NewSourceService(f.sources, f.listings, f.states, f.factory, nil)
	changeLogService := services.NewChangeLogService(f.changeLog, nil)
	syncService := services.NewSyncOrchestrator(services.SyncOrchestratorConfig{
		SourceStore:      f.sources,
		ListingStore:     f.listings,
		SyncStateStore:   f.states,
		CollectorFactory: f.factory,
		Persister:        services.NewBatchPersister(f.listings, 10, nil),
		ChangeLog:        changeLogService,
		CollectRetries:   1,
		RetryBackoff:     time.Millisecond,
	})

	cfg := DefaultConfig()
	cfg.Version = "test"
	f.server = NewServer(cfg, sourceService, syncService, changeLogService, f.queue, f.db, nil)
	return f
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.server.router.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) seedSource(t *testing.T, id string, enabled bool) *domain.Source {
	t.Helper()
	source := &domain.Source{
		ID:              id,
		Name:            "Seeded Market",
		MarketplaceType: domain.MarketplaceTypeAPI,
		Config:          domain.SourceConfig{BaseURL: "https://market.example.com"},
		Enabled:         enabled,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := f.sources.Save(context.Background(), source); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	return source
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestHandleReady(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodGet, "/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleReady_DatabaseDown(t *testing.T) {
	f := newServerFixture()
	f.db.err = errors.New("connection refused")
	rec := f.do(t, http.MethodGet, "/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodGet, "/version", nil)
	body := decodeBody[map[string]string](t, rec)
	if body["version"] != "test" {
		t.Errorf("version = %q, want test", body["version"])
	}
}

func TestCreateSource(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodPost, "/api/v1/sources", map[string]any{
		"name":             "Flea Market",
		"marketplace_type": "api",
		"config":           map[string]any{"base_url": "https://flea.example.com"},
		"enabled":          true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[domain.Source](t, rec)
	if created.ID == "" {
		t.Error("created source should have a generated ID")
	}
	if created.Name != "Flea Market" {
		t.Errorf("name = %q, want Flea Market", created.Name)
	}
}

func TestCreateSource_InvalidBody(t *testing.T) {
	f := newServerFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sources", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	f.server.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateSource_MissingName(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodPost, "/api/v1/sources", map[string]any{
		"marketplace_type": "api",
		"config":           map[string]any{"base_url": "https://flea.example.com"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateSource_UnsupportedType(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodPost, "/api/v1/sources", map[string]any{
		"name":             "Flea Market",
		"marketplace_type": "carrier-pigeon",
		"config":           map[string]any{"base_url": "https://flea.example.com"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetSource(t *testing.T) {
	f := newServerFixture()
	f.seedSource(t, "src-1", true)

	rec := f.do(t, http.MethodGet, "/api/v1/sources/src-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	source := decodeBody[domain.Source](t, rec)
	if source.ID != "src-1" {
		t.Errorf("id = %q, want src-1", source.ID)
	}
}

func TestGetSource_NotFound(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodGet, "/api/v1/sources/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListSources(t *testing.T) {
	f := newServerFixture()
	f.seedSource(t, "src-1", true)
	f.seedSource(t, "src-2", false)

	rec := f.do(t, http.MethodGet, "/api/v1/sources", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	sources := decodeBody[[]*domain.Source](t, rec)
	if len(sources) != 2 {
		t.Errorf("len(sources) = %d, want 2", len(sources))
	}
}

func TestUpdateSource(t *testing.T) {
	f := newServerFixture()
	f.seedSource(t, "src-1", true)

	rec := f.do(t, http.MethodPut, "/api/v1/sources/src-1", map[string]any{
		"name":             "Renamed Market",
		"marketplace_type": "api",
		"config":           map[string]any{"base_url": "https://renamed.example.com"},
		"enabled":          false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[domain.Source](t, rec)
	if updated.Name != "Renamed Market" {
		t.Errorf("name = %q, want Renamed Market", updated.Name)
	}
	if updated.ID != "src-1" {
		t.Errorf("id = %q, want src-1 (path wins over body)", updated.ID)
	}
}

func TestUpdateSource_NotFound(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodPut, "/api/v1/sources/missing", map[string]any{
		"name":             "Ghost Market",
		"marketplace_type": "api",
		"config":           map[string]any{"base_url": "https://ghost.example.com"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteSource(t *testing.T) {
	f := newServerFixture()
	f.seedSource(t, "src-1", true)

	rec := f.do(t, http.MethodDelete, "/api/v1/sources/src-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/sources/src-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("source should be gone, got status %d", rec.Code)
	}
}

func TestDeleteSource_NotFound(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodDelete, "/api/v1/sources/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestTriggerSync_Queued(t *testing.T) {
	f := newServerFixture()
	f.seedSource(t, "src-1", true)

	rec := f.do(t, http.MethodPost, "/api/v1/sources/src-1/sync?force=true", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[SyncAcceptedResponse](t, rec)
	if resp.SourceID != "src-1" {
		t.Errorf("source_id = %q, want src-1", resp.SourceID)
	}
	if resp.TaskID == "" {
		t.Error("task_id should be set")
	}

	tasks := f.queue.Enqueued()
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
	if tasks[0].Type != domain.TaskTypeSyncSource {
		t.Errorf("task type = %q, want %q", tasks[0].Type, domain.TaskTypeSyncSource)
	}
	if !tasks[0].Force() {
		t.Error("task should carry the force flag")
	}
}

func TestTriggerSync_NotFound(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodPost, "/api/v1/sources/missing/sync", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestTriggerSync_Wait(t *testing.T) {
	f := newServerFixture()
	f.seedSource(t, "src-1", true)
	f.factory.Collector.Records = []domain.ListingRecord{{
		ExternalID: "ext-1",
		Name:       "Listing 1",
		Price:      1000,
	}}
	f.factory.Collector.Count = 1

	rec := f.do(t, http.MethodPost, "/api/v1/sources/src-1/sync?wait=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	outcome := decodeBody[domain.SyncOutcome](t, rec)
	if outcome.Status != domain.SyncStatusAccepted {
		t.Errorf("status = %q, want accepted (reason %q)", outcome.Status, outcome.Reason)
	}
	if outcome.Stats.New != 1 {
		t.Errorf("stats.new = %d, want 1", outcome.Stats.New)
	}

	if tasks := f.queue.Enqueued(); len(tasks) != 0 {
		t.Errorf("inline runs should not enqueue tasks, got %d", len(tasks))
	}
}

func TestGetSyncState(t *testing.T) {
	f := newServerFixture()
	f.seedSource(t, "src-1", true)

	rec := f.do(t, http.MethodGet, "/api/v1/sources/src-1/sync", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	state := decodeBody[domain.SourceSyncState](t, rec)
	if state.SourceID != "src-1" {
		t.Errorf("source_id = %q, want src-1", state.SourceID)
	}
	if state.Busy {
		t.Error("fresh state should be idle")
	}
}

func TestListSyncStates(t *testing.T) {
	f := newServerFixture()
	if err := f.states.Save(context.Background(), &domain.SourceSyncState{SourceID: "src-1"}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	if err := f.states.Save(context.Background(), &domain.SourceSyncState{SourceID: "src-2"}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/sources/sync-states", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	states := decodeBody[[]*domain.SourceSyncState](t, rec)
	if len(states) != 2 {
		t.Errorf("len(states) = %d, want 2", len(states))
	}
}

func TestListChangeLog(t *testing.T) {
	f := newServerFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		event := &domain.ChangeEvent{
			ID:       fmt.Sprintf("evt-%d", i),
			SourceID: "src-1",
			Type:     domain.ChangeTypeNew,
			Summary:  fmt.Sprintf("event %d", i),
		}
		if err := f.changeLog.Record(ctx, event); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}

	rec := f.do(t, http.MethodGet, "/api/v1/changelog?type=new", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	entries := decodeBody[[]*domain.ChangeEvent](t, rec)
	if len(entries) != 3 {
		t.Errorf("len(entries) = %d, want 3", len(entries))
	}
}

func TestClearChangeLog(t *testing.T) {
	f := newServerFixture()
	ctx := context.Background()
	if err := f.changeLog.Record(ctx, &domain.ChangeEvent{ID: "evt-1", Type: domain.ChangeTypeNew}); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	rec := f.do(t, http.MethodDelete, "/api/v1/changelog", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody[map[string]int](t, rec)
	if body["removed"] != 1 {
		t.Errorf("removed = %d, want 1", body["removed"])
	}
}

func TestGetStats(t *testing.T) {
	f := newServerFixture()
	ctx := context.Background()
	if err := f.listings.UpsertBatch(ctx, "src-1", []domain.ListingRecord{
		{ExternalID: "ext-1", Name: "One", Price: 100, ImageURL: "https://img/1.jpg"},
		{ExternalID: "ext-2", Name: "Two", Price: 200},
	}); err != nil {
		t.Fatalf("seed listings: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	stats := decodeBody[domain.ListingStats](t, rec)
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
	if stats.WithImages != 1 {
		t.Errorf("with_images = %d, want 1", stats.WithImages)
	}
}

func TestGetStats_UnknownSource(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodGet, "/api/v1/stats?source_id=missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
