package dedup

import (
	"context"
	"errors"
	"time"

	"go-resume-watch/internal/models"
)

// DefaultRetention is how long a seen listing is remembered.
const DefaultRetention = 14 * 24 * time.Hour

var (
	ErrNotFound = errors.New("listing not found")
	ErrEmptyURL = errors.New("listing url is empty")
)

// Store remembers every listing URL ever seen and when it was first seen.
// Entries are never updated: a repeat sighting leaves the first title,
// context and seen_at in place.
type Store interface {
	// Initialize creates the schema. Safe to call on every run.
	Initialize(ctx context.Context) error

	// PurgeOlderThan deletes entries first seen before now-window and
	// reports how many were removed.
	PurgeOlderThan(ctx context.Context, window time.Duration) (int64, error)

	// ClassifyAndRecord inserts the listing if its URL is unknown and
	// reports whether it was new. A duplicate URL is not an error.
	ClassifyAndRecord(ctx context.Context, listing models.Listing) (bool, error)

	// Stats counts the entries first seen on day's calendar date (in day's
	// location) and all entries.
	Stats(ctx context.Context, day time.Time) (models.Stats, error)

	// Lookup returns the stored entry for url or ErrNotFound.
	Lookup(ctx context.Context, url string) (models.StoreEntry, error)

	Close() error
}

// Clock returns the current time. Stores read it once per operation.
type Clock func() time.Time

// DayBounds returns the half-open [start, end) interval of day's calendar
// date in day's location.
func DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}
