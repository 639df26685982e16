package domain

import (
	"fmt"
	"time"
)

// MarketplaceType identifies the collector variant used for a source
type MarketplaceType string

const (
	// MarketplaceTypeHTML scrapes storefront pages with CSS selectors
	MarketplaceTypeHTML MarketplaceType = "html"
	// MarketplaceTypeAPI reads a JSON search API
	MarketplaceTypeAPI MarketplaceType = "api"
)

// Source is one distinct storefront catalog tracked independently.
// Catalogs are never deduplicated across sources.
type Source struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	MarketplaceType MarketplaceType `json:"marketplace_type"`
	Config          SourceConfig    `json:"config"`
	Enabled         bool            `json:"enabled"`
	SyncInterval    time.Duration   `json:"sync_interval"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SourceConfig holds marketplace-specific collection settings
type SourceConfig struct {
	BaseURL  string `json:"base_url"`
	Query    string `json:"query,omitempty"`
	MaxPages int    `json:"max_pages,omitempty"`

	// HTML variant: CSS selectors for the listing grid
	ListSelector  string `json:"list_selector,omitempty"`
	IDAttr        string `json:"id_attr,omitempty"`
	NameSelector  string `json:"name_selector,omitempty"`
	PriceSelector string `json:"price_selector,omitempty"`
	ImageSelector string `json:"image_selector,omitempty"`
	LinkSelector  string `json:"link_selector,omitempty"`
	CountSelector string `json:"count_selector,omitempty"`

	AllowedDomains []string          `json:"allowed_domains,omitempty"`
	UserAgent      string            `json:"user_agent,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Validate checks the source before it is saved or synced
func (s *Source) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: source id is required", ErrInvalidInput)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: source name is required", ErrInvalidInput)
	}
	if s.MarketplaceType == "" {
		return fmt.Errorf("%w: marketplace type is required", ErrInvalidInput)
	}
	if s.Config.BaseURL == "" {
		return fmt.Errorf("%w: base url is required", ErrInvalidInput)
	}
	return nil
}
