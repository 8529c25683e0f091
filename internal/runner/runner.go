package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-resume-watch/internal/dedup"
	"go-resume-watch/internal/metrics"
	"go-resume-watch/internal/models"
	"go-resume-watch/internal/reporter"
	"go-resume-watch/internal/scraper"
	"go-resume-watch/internal/telegram"

	"go.uber.org/zap"
)

var (
	// ErrFetch means the search page could not be retrieved. Nothing was
	// extracted and the store was not modified.
	ErrFetch = errors.New("upstream fetch failed")
	// ErrStore means the dedup store could not be initialized or queried.
	ErrStore = errors.New("dedup store failed")
)

// Options are the per-deployment settings of a run.
type Options struct {
	SourceURL    string
	BaseURL      string
	ReportPath   string
	Retention    time.Duration
	FetchTimeout time.Duration
	SendDelay    time.Duration
	Location     *time.Location
}

// Runner executes the pipeline once per Run call:
// fetch → purge → extract → classify → stats → compose → report → deliver.
type Runner struct {
	fetcher   scraper.Fetcher
	extractor *scraper.Extractor
	store     dedup.Store
	composer  *reporter.Composer
	sender    telegram.Sender
	metrics   *metrics.Metrics
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

// Deps are the collaborators of a Runner. Sender may be nil to skip
// Telegram delivery.
type Deps struct {
	Fetcher   scraper.Fetcher
	Extractor *scraper.Extractor
	Store     dedup.Store
	Composer  *reporter.Composer
	Sender    telegram.Sender
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

func New(deps Deps, opts Options) *Runner {
	if opts.BaseURL == "" {
		opts.BaseURL = opts.SourceURL
	}
	if opts.Retention <= 0 {
		opts.Retention = dedup.DefaultRetention
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Extractor == nil {
		deps.Extractor = scraper.NewExtractor()
	}
	return &Runner{
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		store:     deps.Store,
		composer:  deps.Composer,
		sender:    deps.Sender,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		opts:      opts,
		now:       deps.Now,
	}
}

// Summary describes one finished run.
type Summary struct {
	Result     models.RunResult
	Stats      models.Stats
	Purged     int64
	Batch      reporter.Batch
	ReportErr  error
	Delivery   telegram.DeliveryReport
	Delivered  bool
	StartedAt  time.Time
	FinishedAt time.Time
}

func (s *Summary) NewCount() int {
	return s.Result.NewCount()
}

// Run performs one pipeline pass. Only ErrFetch and ErrStore failures are
// returned; report and delivery problems are logged and kept in the Summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{StartedAt: r.now()}

	if err := r.store.Initialize(ctx); err != nil {
		r.metrics.IncRun("store_failed")
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	markup, err := r.fetch(ctx)
	if err != nil {
		r.metrics.IncRun("fetch_failed")
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	purged, err := r.store.PurgeOlderThan(ctx, r.opts.Retention)
	if err != nil {
		r.metrics.IncRun("store_failed")
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	summary.Purged = purged
	r.metrics.PurgedTotal.Add(float64(purged))
	if purged > 0 {
		r.logger.Info("🗑️ Removed old listings", zap.Int64("purged", purged), zap.Duration("retention", r.opts.Retention))
	}

	result, err := r.classify(ctx, markup)
	if err != nil {
		r.metrics.IncRun("store_failed")
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	summary.Result = result

	stats, err := r.store.Stats(ctx, r.now().In(r.opts.Location))
	if err != nil {
		r.metrics.IncRun("store_failed")
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	summary.Stats = stats
	r.metrics.StoreToday.Set(float64(stats.Today))
	r.metrics.StoreTotal.Set(float64(stats.Total))

	summary.Batch = r.composer.Compose(result, stats)

	if r.opts.ReportPath != "" {
		if err := reporter.WriteReport(r.opts.ReportPath, summary.Batch.Report); err != nil {
			summary.ReportErr = err
			r.logger.Error("❌ Failed to save report", zap.String("path", r.opts.ReportPath), zap.Error(err))
		} else {
			r.logger.Info("💾 Results saved", zap.String("path", r.opts.ReportPath))
		}
	}
	r.logger.Info("🎯 Listings classified", zap.Int("new", result.NewCount()), zap.Int("processed", len(result.Listings)))

	if r.sender != nil {
		summary.Delivered = true
		summary.Delivery = telegram.Deliver(ctx, r.sender, summary.Batch.Chunks, r.opts.SendDelay, r.logger)
		r.metrics.DeliveryFailures.Add(float64(summary.Delivery.Failed()))
		if summary.Delivery.Failed() == 0 {
			r.logger.Info("✅ Results sent to Telegram", zap.Int("messages", summary.Delivery.Sent))
		} else {
			r.logger.Warn("⚠️ Telegram delivery incomplete", zap.Int("sent", summary.Delivery.Sent), zap.Int("chunks", len(summary.Batch.Chunks)))
		}
	} else {
		r.logger.Warn("❌ Telegram is not configured, skipping delivery")
	}

	summary.FinishedAt = r.now()
	r.metrics.IncRun("success")
	r.metrics.LastSuccess.Set(float64(summary.FinishedAt.Unix()))
	return summary, nil
}

func (r *Runner) fetch(ctx context.Context) (string, error) {
	if r.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FetchTimeout)
		defer cancel()
	}
	r.logger.Info("📋 Fetching search page", zap.String("url", r.opts.SourceURL), zap.String("fetcher", r.fetcher.Name()))
	return r.fetcher.Fetch(ctx, r.opts.SourceURL)
}

// classify records every extracted listing and keeps extraction order.
func (r *Runner) classify(ctx context.Context, markup string) (models.RunResult, error) {
	result := models.RunResult{Source: r.opts.SourceURL}
	for listing := range r.extractor.Extract(markup, r.opts.BaseURL) {
		isNew, err := r.store.ClassifyAndRecord(ctx, listing)
		if err != nil {
			return result, err
		}
		result.Listings = append(result.Listings, models.ClassifiedListing{Listing: listing, IsNew: isNew})

		if isNew {
			r.logger.Info("✅ NEW", zap.String("title", listing.Title), zap.String("url", listing.URL))
		} else {
			r.logger.Debug("ℹ️ REPEAT", zap.String("title", listing.Title), zap.String("url", listing.URL))
		}
	}

	r.metrics.CandidatesTotal.Add(float64(len(result.Listings)))
	r.metrics.NewTotal.Add(float64(result.NewCount()))
	if len(result.Listings) == 0 {
		r.logger.Warn("❌ No listings found on the page (or the page structure changed)")
	}
	return result, nil
}
