package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-resume-watch/internal/dedup"
	"go-resume-watch/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const urlConstraint = "resumes_url_key"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS resumes (
		id      BIGSERIAL PRIMARY KEY,
		url     TEXT        NOT NULL,
		title   TEXT        NOT NULL DEFAULT '',
		context TEXT        NOT NULL DEFAULT '',
		seen_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT resumes_url_key UNIQUE (url)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resumes_url ON resumes(url)`,
	`CREATE INDEX IF NOT EXISTS idx_resumes_seen_at ON resumes(seen_at)`,
}

// Repository is the PostgreSQL implementation of dedup.Store, used when a
// DATABASE_URL is configured.
type Repository struct {
	db  *pgxpool.Pool
	now dedup.Clock
}

var _ dedup.Store = (*Repository)(nil)

type Option func(*Repository)

func WithClock(now dedup.Clock) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

func ConnectDB(ctx context.Context, connString string, opts ...Option) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 4
	config.MaxConnLifetime = time.Hour

	// Connection poolers in transaction mode (PgBouncer, Supabase) do not
	// support prepared statements; disable the statement cache.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	r := &Repository{db: pool, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		r.db.Close()
	}
	return nil
}

func (r *Repository) Initialize(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

func (r *Repository) PurgeOlderThan(ctx context.Context, window time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM resumes WHERE seen_at < $1`, r.now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("failed to purge old listings: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ClassifyAndRecord relies on the unique constraint: a rejected insert means
// the URL was already known.
func (r *Repository) ClassifyAndRecord(ctx context.Context, listing models.Listing) (bool, error) {
	if listing.URL == "" {
		return false, dedup.ErrEmptyURL
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO resumes (url, title, context, seen_at) VALUES ($1, $2, $3, $4)`,
		listing.URL, listing.Title, listing.Context, r.now())
	if isUniqueViolationOnConstraint(err, urlConstraint) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record listing %s: %w", listing.URL, err)
	}
	return true, nil
}

func (r *Repository) Stats(ctx context.Context, day time.Time) (models.Stats, error) {
	var stats models.Stats
	start, end := dedup.DayBounds(day)
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM resumes WHERE seen_at >= $1 AND seen_at < $2`, start, end).
		Scan(&stats.Today)
	if err != nil {
		return stats, fmt.Errorf("failed to count today's listings: %w", err)
	}
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM resumes`).Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("failed to count listings: %w", err)
	}
	return stats, nil
}

func (r *Repository) Lookup(ctx context.Context, url string) (models.StoreEntry, error) {
	var e models.StoreEntry
	err := r.db.QueryRow(ctx,
		`SELECT id, url, title, context, seen_at FROM resumes WHERE url = $1`, url).
		Scan(&e.ID, &e.URL, &e.Title, &e.Context, &e.SeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return e, dedup.ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("failed to look up listing: %w", err)
	}
	e.SeenAt = e.SeenAt.UTC()
	return e, nil
}

func isUniqueViolationOnConstraint(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if err == nil || !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
