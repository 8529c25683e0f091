package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-resume-watch/internal/models"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS resumes (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		url     TEXT    NOT NULL UNIQUE,
		title   TEXT    NOT NULL DEFAULT '',
		context TEXT    NOT NULL DEFAULT '',
		seen_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resumes_url ON resumes(url)`,
	`CREATE INDEX IF NOT EXISTS idx_resumes_seen_at ON resumes(seen_at)`,
}

// SQLiteStore keeps seen listings in a local SQLite file. seen_at is stored
// as Unix milliseconds in UTC.
type SQLiteStore struct {
	db  *sql.DB
	now Clock
}

var _ Store = (*SQLiteStore)(nil)

type SQLiteOption func(*SQLiteStore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now Clock) SQLiteOption {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	//one writer at a time; also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQLiteStore) Initialize(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) PurgeOlderThan(ctx context.Context, window time.Duration) (int64, error) {
	cutoff := s.now().Add(-window).UTC().UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM resumes WHERE seen_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge old listings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged listings: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) ClassifyAndRecord(ctx context.Context, listing models.Listing) (bool, error) {
	if listing.URL == "" {
		return false, ErrEmptyURL
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO resumes (url, title, context, seen_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		listing.URL, listing.Title, listing.Context, s.now().UTC().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to record listing %s: %w", listing.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record listing %s: %w", listing.URL, err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Stats(ctx context.Context, day time.Time) (models.Stats, error) {
	var stats models.Stats
	start, end := DayBounds(day)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM resumes WHERE seen_at >= ? AND seen_at < ?`,
		start.UTC().UnixMilli(), end.UTC().UnixMilli()).Scan(&stats.Today)
	if err != nil {
		return stats, fmt.Errorf("failed to count today's listings: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resumes`).Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("failed to count listings: %w", err)
	}
	return stats, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, url string) (models.StoreEntry, error) {
	var e models.StoreEntry
	var seenAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, context, seen_at FROM resumes WHERE url = ?`, url).
		Scan(&e.ID, &e.URL, &e.Title, &e.Context, &seenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("failed to look up listing: %w", err)
	}
	e.SeenAt = time.UnixMilli(seenAt).UTC()
	return e, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
