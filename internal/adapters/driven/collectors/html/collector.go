// Package html collects listings from storefront pages using CSS
// selectors configured per source.
package html

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Verify interface compliance
var (
	_ driven.CollectorBuilder = (*Builder)(nil)
	_ driven.Collector        = (*Collector)(nil)
)

// Builder creates HTML collectors.
type Builder struct{}

// NewBuilder creates a new HTML collector builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Type() domain.MarketplaceType {
	return domain.MarketplaceTypeHTML
}

// Build validates the source's selector configuration and returns a
// collector for it.
func (b *Builder) Build(source *domain.Source) (driven.Collector, error) {
	cfg := source.Config
	if cfg.ListSelector == "" {
		return nil, fmt.Errorf("%w: list_selector is required for html sources", domain.ErrInvalidInput)
	}
	if cfg.IDAttr == "" {
		return nil, fmt.Errorf("%w: id_attr is required for html sources", domain.ErrInvalidInput)
	}
	if cfg.NameSelector == "" {
		return nil, fmt.Errorf("%w: name_selector is required for html sources", domain.ErrInvalidInput)
	}
	return &Collector{}, nil
}

// Collector scrapes a storefront grid page by page. A fresh colly
// instance is built per run because callbacks accumulate on reuse.
type Collector struct{}

func (c *Collector) Type() domain.MarketplaceType {
	return domain.MarketplaceTypeHTML
}

// Collect walks the paginated listing grid. Any transport or HTTP
// error aborts the whole run: a partial crawl must never pass as a
// complete snapshot.
func (c *Collector) Collect(ctx context.Context, source *domain.Source) ([]domain.ListingRecord, error) {
	cfg := source.Config

	var records []domain.ListingRecord
	var scrapeErr error
	now := time.Now()

	scraper := newScraper(cfg)
	scraper.OnHTML(cfg.ListSelector, func(e *colly.HTMLElement) {
		id := strings.TrimSpace(e.Attr(cfg.IDAttr))
		if id == "" {
			return
		}
		rec := domain.ListingRecord{
			ExternalID:  id,
			Name:        strings.TrimSpace(e.ChildText(cfg.NameSelector)),
			Price:       parsePriceCents(e.ChildText(cfg.PriceSelector)),
			CollectedAt: now,
		}
		if cfg.ImageSelector != "" {
			rec.ImageURL = e.Request.AbsoluteURL(e.ChildAttr(cfg.ImageSelector, "src"))
		}
		if cfg.LinkSelector != "" {
			rec.URL = e.Request.AbsoluteURL(e.ChildAttr(cfg.LinkSelector, "href"))
		}
		records = append(records, rec)
	})
	scraper.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("fetch %s: %w", r.Request.URL, err)
	})

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		before := len(records)
		if err := scraper.Visit(pageURL(cfg, page)); err != nil {
			return nil, fmt.Errorf("visit page %d: %w", page, err)
		}
		scraper.Wait()
		if scrapeErr != nil {
			return nil, scrapeErr
		}
		// An empty page means the grid is exhausted.
		if len(records) == before {
			break
		}
	}

	return records, nil
}

// ProbeCount reads the result-count element from the first page.
func (c *Collector) ProbeCount(ctx context.Context, source *domain.Source) (int, error) {
	cfg := source.Config
	if cfg.CountSelector == "" {
		return 0, fmt.Errorf("%w: count_selector not configured", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := -1
	var scrapeErr error

	scraper := newScraper(cfg)
	scraper.OnHTML(cfg.CountSelector, func(e *colly.HTMLElement) {
		if count >= 0 {
			return
		}
		n, err := parseCount(e.Text)
		if err != nil {
			scrapeErr = err
			return
		}
		count = n
	})
	scraper.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("fetch %s: %w", r.Request.URL, err)
	})

	if err := scraper.Visit(pageURL(cfg, 1)); err != nil {
		return 0, fmt.Errorf("visit count page: %w", err)
	}
	scraper.Wait()
	if scrapeErr != nil {
		return 0, scrapeErr
	}
	if count < 0 {
		return 0, fmt.Errorf("count element %q not found", cfg.CountSelector)
	}
	return count, nil
}

func newScraper(cfg domain.SourceConfig) *colly.Collector {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	opts := []colly.CollectorOption{colly.UserAgent(ua)}
	if len(cfg.AllowedDomains) > 0 {
		opts = append(opts, colly.AllowedDomains(cfg.AllowedDomains...))
	}
	return colly.NewCollector(opts...)
}

func pageURL(cfg domain.SourceConfig, page int) string {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return cfg.BaseURL
	}
	q := u.Query()
	if cfg.Query != "" {
		q.Set("q", cfg.Query)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

var priceRe = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// parsePriceCents extracts a price in cents from storefront text such
// as "€ 1.299,50" or "$12.99". Unparseable text yields zero rather
// than an error: storefronts routinely show "free" or "price on request".
func parsePriceCents(text string) int {
	m := priceRe.FindString(text)
	if m == "" {
		return 0
	}

	// The last separator is the decimal mark when followed by one or
	// two digits; everything else is grouping.
	lastSep := strings.LastIndexAny(m, ".,")
	if lastSep >= 0 && len(m)-lastSep-1 <= 2 {
		whole, _ := strconv.Atoi(stripSeparators(m[:lastSep]))
		frac := m[lastSep+1:]
		if len(frac) == 1 {
			frac += "0"
		}
		cents, _ := strconv.Atoi(frac)
		return whole*100 + cents
	}

	whole, _ := strconv.Atoi(stripSeparators(m))
	return whole * 100
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	return strings.ReplaceAll(s, ",", "")
}

var countRe = regexp.MustCompile(`\d+(?:[.,]\d{3})*`)

func parseCount(text string) (int, error) {
	m := countRe.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("no count in %q", strings.TrimSpace(text))
	}
	n, err := strconv.Atoi(stripSeparators(m))
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", m, err)
	}
	return n, nil
}
