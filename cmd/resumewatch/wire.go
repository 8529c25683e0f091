package main

import (
	"context"
	"fmt"
	"time"

	"go-resume-watch/internal/browser"
	"go-resume-watch/internal/config"
	"go-resume-watch/internal/database"
	"go-resume-watch/internal/dedup"
	"go-resume-watch/internal/logger"
	"go-resume-watch/internal/metrics"
	"go-resume-watch/internal/reporter"
	"go-resume-watch/internal/runner"
	"go-resume-watch/internal/scraper"
	"go-resume-watch/internal/telegram"

	"go.uber.org/zap"
)

// app holds everything built from the config. close releases the store.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	runner  *runner.Runner
	close   func()
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	log.Info("🔧 Config loaded", zap.String("source", cfg.SourceURL), zap.String("fetch_mode", cfg.FetchMode))

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", runner.ErrStore, err)
	}

	var sender telegram.Sender
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramChat)
		if err != nil {
			//delivery is optional; the report is still written
			log.Error("❌ Failed to init Telegram Bot", zap.Error(err))
		} else {
			log.Info("🤖 Telegram Bot initialized", zap.String("bot", bot.Username()))
			sender = bot
		}
	} else {
		log.Warn("❌ TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are not both set")
	}

	var fetcher scraper.Fetcher
	switch cfg.FetchMode {
	case config.FetchModeBrowser:
		fetcher = browser.NewFetcher(cfg.FetchTimeout, cfg.UserAgent, cfg.AcceptLanguage, log,
			browser.WithScreenshots(cfg.ScreenshotDir))
	default:
		fetcher = scraper.NewHTTPFetcher(cfg.FetchTimeout, cfg.UserAgent, cfg.AcceptLanguage)
	}

	extractor := scraper.NewExtractor(
		scraper.WithListingPath(cfg.ListingPath),
		scraper.WithCardMarker(cfg.MarkerRegexp()),
	)
	composer := reporter.NewComposer(cfg.ReportTitle, cfg.ChunkSize,
		reporter.WithClock(func() time.Time { return time.Now().In(loc) }))

	m := metrics.New()
	r := runner.New(runner.Deps{
		Fetcher:   fetcher,
		Extractor: extractor,
		Store:     store,
		Composer:  composer,
		Sender:    sender,
		Metrics:   m,
		Logger:    log,
	}, runner.Options{
		SourceURL:    cfg.SourceURL,
		BaseURL:      cfg.BaseURL,
		ReportPath:   cfg.ReportPath,
		Retention:    cfg.Retention,
		FetchTimeout: cfg.FetchTimeout,
		SendDelay:    cfg.SendDelay,
		Location:     loc,
	})

	return &app{
		cfg:     cfg,
		logger:  log,
		metrics: m,
		runner:  r,
		close: func() {
			if err := store.Close(); err != nil {
				log.Warn("⚠️ Failed to close store", zap.Error(err))
			}
			_ = log.Sync()
		},
	}, nil
}

// openStore uses PostgreSQL when a DATABASE_URL is configured and the local
// SQLite file otherwise.
func openStore(ctx context.Context, cfg *config.Config) (dedup.Store, error) {
	if cfg.DatabaseURL != "" {
		repo, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	store, err := dedup.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return store, nil
}
