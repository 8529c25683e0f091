package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-resume-watch/internal/dedup"
	"go-resume-watch/internal/metrics"
	"go-resume-watch/internal/models"
	"go-resume-watch/internal/reporter"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	sourceURL = "https://hh.ru/search/resume?text=python"
	page      = `<html><body>
	<div><a href="/resume/aaa?query=python">Python Developer</a> Moscow</div>
	<div><a href="/resume/bbb">Django Engineer</a> Remote</div>
	</body></html>`
)

type fakeFetcher struct {
	markup string
	err    error
	calls  int
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.markup, f.err
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

type fixture struct {
	runner  *Runner
	fetcher *fakeFetcher
	sender  *fakeSender
	store   *dedup.SQLiteStore
	metrics *metrics.Metrics
	report  string
	now     time.Time
}

func newFixture(t *testing.T, markup string) *fixture {
	t.Helper()
	f := &fixture{
		fetcher: &fakeFetcher{markup: markup},
		sender:  &fakeSender{},
		metrics: metrics.New(),
		report:  filepath.Join(t.TempDir(), "out", "hh_results.txt"),
		now:     time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	store, err := dedup.OpenSQLite(filepath.Join(t.TempDir(), "resumes.db"), dedup.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	f.store = store

	f.runner = New(Deps{
		Fetcher:  f.fetcher,
		Store:    store,
		Composer: reporter.NewComposer("", 10, reporter.WithClock(clock)),
		Sender:   f.sender,
		Metrics:  f.metrics,
		Now:      clock,
	}, Options{
		SourceURL:  sourceURL,
		ReportPath: f.report,
		Location:   time.UTC,
	})
	return f
}

func TestRun_FirstAndRepeatedRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, page)

	summary, err := f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.NewCount())
	assert.Equal(t, models.Stats{Today: 2, Total: 2}, summary.Stats)
	assert.Equal(t, "https://hh.ru/resume/aaa", summary.Result.Listings[0].Listing.URL)
	assert.True(t, summary.Delivered)
	require.Len(t, f.sender.sent, 1)
	assert.Contains(t, f.sender.sent[0], `1. <a href="https://hh.ru/resume/aaa">Python Developer</a>`)
	assert.Contains(t, f.sender.sent[0], `2. <a href="https://hh.ru/resume/bbb">Django Engineer</a>`)

	data, err := os.ReadFile(f.report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "🔗 URL: https://hh.ru/resume/bbb")

	f.now = f.now.Add(30 * time.Minute)
	summary, err = f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.NewCount())
	assert.Len(t, summary.Result.Listings, 2)
	assert.Equal(t, models.Stats{Today: 2, Total: 2}, summary.Stats)
	require.Len(t, f.sender.sent, 2)
	assert.Contains(t, f.sender.sent[1], "No new listings found")

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.NewTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.CandidatesTotal))
}

func TestRun_FetchFailureLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, page)
	require.NoError(t, f.store.Initialize(ctx))

	//an entry old enough to be purged by a successful run
	now := f.now
	f.now = now.Add(-dedup.DefaultRetention - time.Hour)
	_, err := f.store.ClassifyAndRecord(ctx, models.Listing{URL: "https://hh.ru/resume/old"})
	require.NoError(t, err)
	f.now = now

	f.fetcher.err = errors.New("403 Forbidden")
	summary, err := f.runner.Run(ctx)

	assert.Nil(t, summary)
	assert.ErrorIs(t, err, ErrFetch)
	assert.NotErrorIs(t, err, ErrStore)
	_, err = f.store.Lookup(ctx, "https://hh.ru/resume/old")
	assert.NoError(t, err)
	assert.Empty(t, f.sender.sent)
	assert.NoFileExists(t, f.report)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues("fetch_failed")))

	f.fetcher.err = nil
	summary, err = f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Purged)
	_, err = f.store.Lookup(ctx, "https://hh.ru/resume/old")
	assert.ErrorIs(t, err, dedup.ErrNotFound)
}

func TestRun_StoreFailure(t *testing.T) {
	f := newFixture(t, page)
	require.NoError(t, f.store.Close())

	_, err := f.runner.Run(context.Background())

	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, 0, f.fetcher.calls)
}

func TestRun_DeliveryFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t, page)
	f.sender.err = errors.New("chat not found")

	summary, err := f.runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Delivery.Attempted)
	assert.Equal(t, 1, summary.Delivery.Failed())
	assert.FileExists(t, f.report)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DeliveryFailures))
}

func TestRun_WithoutSender(t *testing.T) {
	f := newFixture(t, page)
	f.runner.sender = nil

	summary, err := f.runner.Run(context.Background())

	require.NoError(t, err)
	assert.False(t, summary.Delivered)
	assert.Equal(t, 2, summary.NewCount())
}

func TestRun_EmptyPage(t *testing.T) {
	f := newFixture(t, `<html><body><p>Captcha</p></body></html>`)

	summary, err := f.runner.Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, summary.Result.Listings)
	assert.Contains(t, summary.Batch.Report, "No listings found on the first page")
	require.Len(t, f.sender.sent, 1)
}

func TestRun_LogsCountsAsFields(t *testing.T) {
	f := newFixture(t, page)
	core, logs := observer.New(zap.DebugLevel)
	f.runner.logger = zap.New(core)

	_, err := f.runner.Run(context.Background())
	require.NoError(t, err)

	classified := logs.FilterMessage("🎯 Listings classified").All()
	require.Len(t, classified, 1)
	assert.Equal(t, int64(2), classified[0].ContextMap()["new"])
	assert.Equal(t, int64(2), classified[0].ContextMap()["processed"])

	fresh := logs.FilterMessage("✅ NEW").All()
	require.Len(t, fresh, 2)
	assert.Equal(t, "Python Developer", fresh[0].ContextMap()["title"])
	assert.Equal(t, "https://hh.ru/resume/aaa", fresh[0].ContextMap()["url"])

	sent := logs.FilterMessage("✅ Results sent to Telegram").All()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(1), sent[0].ContextMap()["messages"])
}
