// Package api collects listings from marketplaces exposing a paginated
// JSON search endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultPageLimit = 100
	defaultUserAgent = "storewatch-core/1.0"
)

// Verify interface compliance
var (
	_ driven.CollectorBuilder = (*Builder)(nil)
	_ driven.Collector        = (*Collector)(nil)
)

// Builder creates API collectors.
type Builder struct {
	client *http.Client
}

// NewBuilder creates a new API collector builder. A nil client selects
// a default with a 20s timeout.
func NewBuilder(client *http.Client) *Builder {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Builder{client: client}
}

func (b *Builder) Type() domain.MarketplaceType {
	return domain.MarketplaceTypeAPI
}

// Build validates the source's base URL and returns a collector for it.
func (b *Builder) Build(source *domain.Source) (driven.Collector, error) {
	base := strings.TrimSpace(source.Config.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("%w: base_url is required", domain.ErrInvalidInput)
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("%w: invalid base_url: %v", domain.ErrInvalidInput, err)
	}
	return &Collector{
		baseURL: strings.TrimRight(base, "/"),
		client:  b.client,
	}, nil
}

// Collector reads a paginated JSON search API:
//
//	GET {base}/api/search?q=...&page=N&limit=M
//	  -> {"items":[{"id","name","price_cents","image_url","url"}],
//	      "total": T, "page": N, "pages": P}
type Collector struct {
	baseURL string
	client  *http.Client
}

type searchResponse struct {
	Items []itemPayload `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Pages int           `json:"pages"`
}

type itemPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	ImageURL   string `json:"image_url"`
	URL        string `json:"url"`
}

func (c *Collector) Type() domain.MarketplaceType {
	return domain.MarketplaceTypeAPI
}

// Collect walks every result page. Any HTTP or decode error aborts the
// run; a partial page walk is never returned as a snapshot.
func (c *Collector) Collect(ctx context.Context, source *domain.Source) ([]domain.ListingRecord, error) {
	cfg := source.Config
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1000 // effectively unbounded, the pages field terminates the walk
	}

	var records []domain.ListingRecord
	now := time.Now()

	for page := 1; page <= maxPages; page++ {
		resp, err := c.search(ctx, cfg, page, defaultPageLimit)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		for _, item := range resp.Items {
			id := strings.TrimSpace(item.ID)
			if id == "" {
				continue
			}
			records = append(records, domain.ListingRecord{
				ExternalID:  id,
				Name:        strings.TrimSpace(item.Name),
				Price:       item.PriceCents,
				ImageURL:    item.ImageURL,
				URL:         item.URL,
				CollectedAt: now,
			})
		}

		if len(resp.Items) == 0 || (resp.Pages > 0 && page >= resp.Pages) {
			break
		}
	}

	return records, nil
}

// ProbeCount asks for a single-item page and reads the total field.
func (c *Collector) ProbeCount(ctx context.Context, source *domain.Source) (int, error) {
	resp, err := c.search(ctx, source.Config, 1, 1)
	if err != nil {
		return 0, err
	}
	return resp.Total, nil
}

func (c *Collector) search(ctx context.Context, cfg domain.SourceConfig, page, limit int) (*searchResponse, error) {
	u, err := url.Parse(c.baseURL + "/api/search")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if cfg.Query != "" {
		q.Set("q", cfg.Query)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode search payload: %w", err)
	}
	return &parsed, nil
}
