package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

func apiSource(baseURL string) *domain.Source {
	return &domain.Source{
		ID:              "src-api",
		Name:            "JSON Market",
		MarketplaceType: domain.MarketplaceTypeAPI,
		Config: domain.SourceConfig{
			BaseURL: baseURL,
		},
	}
}

type fakeItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	ImageURL   string `json:"image_url"`
	URL        string `json:"url"`
}

// searchServer serves a fixed item list through the paginated search
// endpoint, honoring page and limit parameters.
func searchServer(t *testing.T, items []fakeItem) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search" {
			http.NotFound(w, r)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = len(items)
		}

		start := (page - 1) * limit
		end := start + limit
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		pages := (len(items) + limit - 1) / limit

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items": items[start:end],
			"total": len(items),
			"page":  page,
			"pages": pages,
		})
	}))
}

func makeItems(n int) []fakeItem {
	items := make([]fakeItem, n)
	for i := range items {
		items[i] = fakeItem{
			ID:         fmt.Sprintf("item-%d", i),
			Name:       fmt.Sprintf("Item %d", i),
			PriceCents: 1000 + i,
			ImageURL:   fmt.Sprintf("https://cdn.example.com/%d.jpg", i),
			URL:        fmt.Sprintf("https://market.example.com/items/%d", i),
		}
	}
	return items
}

func buildCollector(t *testing.T, baseURL string) *Collector {
	t.Helper()
	c, err := NewBuilder(nil).Build(apiSource(baseURL))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return c.(*Collector)
}

func TestCollect(t *testing.T) {
	server := searchServer(t, makeItems(3))
	defer server.Close()

	c := buildCollector(t, server.URL)
	records, err := c.Collect(context.Background(), apiSource(server.URL))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if records[0].ExternalID != "item-0" {
		t.Errorf("ExternalID = %q, want item-0", records[0].ExternalID)
	}
	if records[1].Price != 1001 {
		t.Errorf("Price = %d, want 1001", records[1].Price)
	}
	if records[2].Name != "Item 2" {
		t.Errorf("Name = %q, want Item 2", records[2].Name)
	}
	if records[0].CollectedAt.IsZero() {
		t.Error("CollectedAt should be set")
	}
}

func TestCollect_Paginated(t *testing.T) {
	// 250 items at the default page limit of 100 means three pages
	server := searchServer(t, makeItems(250))
	defer server.Close()

	c := buildCollector(t, server.URL)
	records, err := c.Collect(context.Background(), apiSource(server.URL))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(records) != 250 {
		t.Fatalf("len(records) = %d, want 250", len(records))
	}
	if records[249].ExternalID != "item-249" {
		t.Errorf("last ExternalID = %q, want item-249", records[249].ExternalID)
	}
}

func TestCollect_MaxPagesCapsWalk(t *testing.T) {
	server := searchServer(t, makeItems(250))
	defer server.Close()

	src := apiSource(server.URL)
	src.Config.MaxPages = 1

	c := buildCollector(t, server.URL)
	records, err := c.Collect(context.Background(), src)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(records) != 100 {
		t.Errorf("len(records) = %d, want 100", len(records))
	}
}

func TestCollect_SkipsItemsWithoutID(t *testing.T) {
	items := makeItems(3)
	items[1].ID = "  "
	server := searchServer(t, items)
	defer server.Close()

	c := buildCollector(t, server.URL)
	records, err := c.Collect(context.Background(), apiSource(server.URL))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("len(records) = %d, want 2", len(records))
	}
}

func TestCollect_ServerErrorFailsRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	c := buildCollector(t, server.URL)
	if _, err := c.Collect(context.Background(), apiSource(server.URL)); err == nil {
		t.Fatal("Collect() should fail on server error")
	}
}

func TestCollect_MalformedPayloadFailsRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	c := buildCollector(t, server.URL)
	if _, err := c.Collect(context.Background(), apiSource(server.URL)); err == nil {
		t.Fatal("Collect() should fail on malformed payload")
	}
}

func TestCollect_CancelledContext(t *testing.T) {
	server := searchServer(t, makeItems(3))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := buildCollector(t, server.URL)
	if _, err := c.Collect(ctx, apiSource(server.URL)); err == nil {
		t.Fatal("Collect() should fail with cancelled context")
	}
}

func TestProbeCount(t *testing.T) {
	server := searchServer(t, makeItems(42))
	defer server.Close()

	c := buildCollector(t, server.URL)
	count, err := c.ProbeCount(context.Background(), apiSource(server.URL))
	if err != nil {
		t.Fatalf("ProbeCount() error = %v", err)
	}
	if count != 42 {
		t.Errorf("ProbeCount() = %d, want 42", count)
	}
}

func TestCollect_QueryForwarded(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[],"total":0,"page":1,"pages":0}`))
	}))
	defer server.Close()

	src := apiSource(server.URL)
	src.Config.Query = "vintage lamp"

	c := buildCollector(t, server.URL)
	if _, err := c.Collect(context.Background(), src); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if gotQuery != "vintage lamp" {
		t.Errorf("q = %q, want %q", gotQuery, "vintage lamp")
	}
}

func TestBuild_MissingBaseURL(t *testing.T) {
	src := apiSource("")
	if _, err := NewBuilder(nil).Build(src); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Build() error = %v, want ErrInvalidInput", err)
	}
}

func TestBuilderType(t *testing.T) {
	if got := NewBuilder(nil).Type(); got != domain.MarketplaceTypeAPI {
		t.Errorf("Type() = %q, want %q", got, domain.MarketplaceTypeAPI)
	}
}
