package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// ScreenshotDebugger saves full-page screenshots of pages that could not be
// fetched, so a blocked or changed search page can be inspected later.
type ScreenshotDebugger struct {
	outputDir string
	logger    *zap.Logger
	now       func() time.Time
}

func NewScreenshotDebugger(dir string, logger *zap.Logger) *ScreenshotDebugger {
	return &ScreenshotDebugger{outputDir: dir, logger: logger, now: time.Now}
}

func (s *ScreenshotDebugger) path(name string) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.png", name, s.now().Format("2006-01-02_15-04-05")))
}

// CaptureAndLog writes a screenshot of page and logs where it went.
func (s *ScreenshotDebugger) CaptureAndLog(page playwright.Page, name, message string) error {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("could not create screenshot directory: %w", err)
	}
	path := s.path(name)
	s.logger.Info("📸 " + message)

	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		s.logger.Warn("⚠️ Failed to capture screenshot", zap.Error(err))
		return err
	}

	s.logger.Info("   Screenshot saved", zap.String("path", path))
	return nil
}
