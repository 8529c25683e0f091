package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go-resume-watch/internal/dedup"
	"go-resume-watch/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolationOnConstraint(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
		{name: "url constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: urlConstraint}, expected: true},
		{name: "wrapped", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: urlConstraint}), expected: true},
		{name: "other constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "resumes_pkey"}, expected: false},
		{name: "other code", err: &pgconn.PgError{Code: "23503", ConstraintName: urlConstraint}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isUniqueViolationOnConstraint(tt.err, urlConstraint))
		})
	}
}

// TestRepository_Postgres runs against a real database when
// TEST_DATABASE_URL is set.
func TestRepository_Postgres(t *testing.T) {
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	current := now
	repo, err := ConnectDB(ctx, connString, WithClock(func() time.Time { return current }))
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Initialize(ctx))
	require.NoError(t, repo.Initialize(ctx))
	_, err = repo.db.Exec(ctx, `TRUNCATE resumes`)
	require.NoError(t, err)

	listing := models.Listing{URL: "https://hh.ru/resume/pg-test", Title: "Python Developer", Context: "Moscow"}

	isNew, err := repo.ClassifyAndRecord(ctx, listing)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = repo.ClassifyAndRecord(ctx, models.Listing{URL: listing.URL, Title: "Changed"})
	require.NoError(t, err)
	assert.False(t, isNew)

	entry, err := repo.Lookup(ctx, listing.URL)
	require.NoError(t, err)
	assert.Equal(t, "Python Developer", entry.Title)

	_, err = repo.Lookup(ctx, "https://hh.ru/resume/missing")
	assert.ErrorIs(t, err, dedup.ErrNotFound)

	_, err = repo.ClassifyAndRecord(ctx, models.Listing{})
	assert.ErrorIs(t, err, dedup.ErrEmptyURL)

	stats, err := repo.Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{Today: 1, Total: 1}, stats)

	current = now.Add(dedup.DefaultRetention + time.Hour)
	purged, err := repo.PurgeOlderThan(ctx, dedup.DefaultRetention)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
