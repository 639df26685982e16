package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ListingRecord is a single listing as reported by a collector in one
// crawl pass. Prices are integer minor units (cents).
type ListingRecord struct {
	SourceID    string    `json:"source_id"`
	ExternalID  string    `json:"external_id"`
	Name        string    `json:"name"`
	Price       int       `json:"price"`
	ImageURL    string    `json:"image_url,omitempty"`
	URL         string    `json:"url,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
}

// Validate checks the fields a record must carry to be reconciled.
// Invalid records are dropped and counted, never aborting a whole snapshot.
func (r *ListingRecord) Validate() error {
	if r.ExternalID == "" {
		return fmt.Errorf("%w: external id is required", ErrInvalidInput)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if r.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	return nil
}

// fingerprintSep separates fields in the hash input so that adjacent
// fields cannot run together ("ab"+"c" vs "a"+"bc").
const fingerprintSep = "\x1f"

// Fingerprint returns a stable content hash over the listing's semantic
// fields: name, price, image URL and URL, serialized in that fixed order.
// Volatile timestamps (collected_at, updated_at) are excluded so that
// re-collecting identical content never looks like a modification.
func Fingerprint(r ListingRecord) string {
	h := sha256.New()
	io.WriteString(h, r.Name)
	io.WriteString(h, fingerprintSep)
	io.WriteString(h, strconv.Itoa(r.Price))
	io.WriteString(h, fingerprintSep)
	io.WriteString(h, r.ImageURL)
	io.WriteString(h, fingerprintSep)
	io.WriteString(h, r.URL)
	return hex.EncodeToString(h.Sum(nil))
}

// PersistedListing is a listing row in the snapshot store.
// Rows are soft-deleted: is_active flips to false when a listing
// disappears, and the same row is reactivated if it reappears.
type PersistedListing struct {
	SourceID    string    `json:"source_id"`
	ExternalID  string    `json:"external_id"`
	Name        string    `json:"name"`
	Price       int       `json:"price"`
	ImageURL    string    `json:"image_url,omitempty"`
	URL         string    `json:"url,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	IsActive    bool      `json:"is_active"`
	CollectedAt time.Time `json:"collected_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListingStats aggregates the snapshot store, optionally scoped to one source.
type ListingStats struct {
	Total         int        `json:"total"`
	WithImages    int        `json:"with_images"`
	WithoutImages int        `json:"without_images"`
	LastUpdate    *time.Time `json:"last_update,omitempty"`
}
