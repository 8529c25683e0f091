package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// Fetcher renders the search page in headless Chromium and returns the
// resulting DOM. Use it when the listings are rendered client side.
type Fetcher struct {
	userAgent      string
	acceptLanguage string
	timeout        time.Duration
	scroll         bool
	screenshots    *ScreenshotDebugger
	logger         *zap.Logger
}

type Option func(*Fetcher)

// WithScreenshots captures the page into dir whenever a fetch fails after
// navigation. An empty dir disables capturing.
func WithScreenshots(dir string) Option {
	return func(f *Fetcher) {
		if dir != "" {
			f.screenshots = NewScreenshotDebugger(dir, f.logger)
		}
	}
}

// WithoutScroll returns the DOM as loaded, without scrolling for lazy content.
func WithoutScroll() Option {
	return func(f *Fetcher) {
		f.scroll = false
	}
}

func NewFetcher(timeout time.Duration, userAgent, acceptLanguage string, logger *zap.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		userAgent:      userAgent,
		acceptLanguage: acceptLanguage,
		timeout:        timeout,
		scroll:         true,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) Name() string {
	return "browser"
}

// Fetch starts a fresh browser for every call; runs are minutes apart so
// there is nothing worth keeping warm.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	timeout := f.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return "", fmt.Errorf("browser fetch of %s: %w", url, context.DeadlineExceeded)
	}

	pw, err := playwright.Run()
	if err != nil {
		return "", fmt.Errorf("could not start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("could not launch chromium browser: %w", err)
	}
	defer browser.Close()

	opts := playwright.BrowserNewContextOptions{}
	if f.userAgent != "" {
		opts.UserAgent = playwright.String(f.userAgent)
	}
	if f.acceptLanguage != "" {
		opts.ExtraHttpHeaders = map[string]string{"Accept-Language": f.acceptLanguage}
	}
	browserCtx, err := browser.NewContext(opts)
	if err != nil {
		return "", fmt.Errorf("could not create browser context: %w", err)
	}
	defer browserCtx.Close()

	page, err := browserCtx.NewPage()
	if err != nil {
		return "", fmt.Errorf("could not create new page: %w", err)
	}
	defer page.Close()

	f.logger.Debug("🌐 navigating", zap.String("url", url), zap.Duration("timeout", timeout))
	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if resp != nil && !resp.Ok() {
		f.capture(page, "fetch_status", fmt.Sprintf("Search page answered %d", resp.Status()))
		return "", fmt.Errorf("failed to fetch %s: unexpected status %d", url, resp.Status())
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if f.scroll {
		//lazy-loaded cards only appear after scrolling
		if err := HumanScroll(page); err != nil {
			f.logger.Warn("⚠️ scroll failed, using current DOM", zap.Error(err))
		}
	}

	html, err := page.Content()
	if err != nil {
		f.capture(page, "fetch_content", "Could not read page content")
		return "", fmt.Errorf("could not read page content: %w", err)
	}
	return html, nil
}

func (f *Fetcher) capture(page playwright.Page, name, message string) {
	if f.screenshots == nil {
		return
	}
	_ = f.screenshots.CaptureAndLog(page, name, message)
}
