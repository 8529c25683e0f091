package reporter

import (
	"fmt"
	"html"
	"strings"
	"time"

	"go-resume-watch/internal/models"
)

const (
	// DefaultChunkSize keeps a Telegram message well under its 4096
	// character limit without measuring the rendered text.
	DefaultChunkSize = 10
	DefaultTitle     = "New Python developer resumes"

	timeLayout = "2006-01-02 15:04:05"
	separator  = "========================================\n"
)

// Batch is everything one run reports: the file report and the messages.
type Batch struct {
	Report string
	Chunks []string
}

// Composer renders a run into a report and Telegram-ready message chunks.
// It holds no state between calls.
type Composer struct {
	title     string
	chunkSize int
	now       func() time.Time
}

type Option func(*Composer)

// WithClock replaces time.Now for the "parsed at" field.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		if now != nil {
			c.now = now
		}
	}
}

func NewComposer(title string, chunkSize int, opts ...Option) *Composer {
	if title == "" {
		title = DefaultTitle
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	c := &Composer{title: title, chunkSize: chunkSize, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose reads the clock once, so equal inputs at the same instant give
// byte-identical output.
func (c *Composer) Compose(result models.RunResult, stats models.Stats) Batch {
	parsedAt := c.now().Format(timeLayout)
	fresh := result.New()
	return Batch{
		Report: c.report(result, fresh, stats, parsedAt),
		Chunks: c.chunks(fresh, stats, parsedAt),
	}
}

func (c *Composer) report(result models.RunResult, fresh []models.Listing, stats models.Stats, parsedAt string) string {
	var b strings.Builder
	b.WriteString("📊 PARSING STATISTICS\n")
	b.WriteString(strings.Repeat("=", 20) + "\n")
	fmt.Fprintf(&b, "🎯 New this run: %d\n", len(fresh))
	fmt.Fprintf(&b, "📅 Total today: %d\n", stats.Today)
	fmt.Fprintf(&b, "💾 Total in store: %d\n", stats.Total)
	fmt.Fprintf(&b, "🔗 Source: %s\n", result.Source)
	fmt.Fprintf(&b, "⏰ Parsed at: %s\n\n", parsedAt)

	if len(result.Listings) == 0 {
		b.WriteString("❌ No listings found on the first page (or the page structure changed).\n")
		return b.String()
	}
	if len(fresh) == 0 {
		b.WriteString("ℹ️ No new listings found.\n")
		return b.String()
	}

	for i, l := range fresh {
		b.WriteString(separator)
		fmt.Fprintf(&b, "Listing #%d\n", i+1)
		fmt.Fprintf(&b, "🏷️  %s\n", l.Title)
		fmt.Fprintf(&b, "🔗 URL: %s\n", l.URL)
	}
	b.WriteString(separator)
	return b.String()
}

func (c *Composer) chunks(fresh []models.Listing, stats models.Stats, parsedAt string) []string {
	var head strings.Builder
	fmt.Fprintf(&head, "<b>📊 %s</b>\n\n", html.EscapeString(c.title))
	fmt.Fprintf(&head, "🎯 New this run: %d\n", len(fresh))
	fmt.Fprintf(&head, "📅 Total today: %d\n", stats.Today)
	fmt.Fprintf(&head, "💾 Total in store: %d\n", stats.Total)
	fmt.Fprintf(&head, "⏰ Parsed at: %s\n\n", parsedAt)

	if len(fresh) == 0 {
		head.WriteString("ℹ️ No new listings found.")
		return []string{head.String()}
	}

	chunks := make([]string, 0, (len(fresh)+c.chunkSize-1)/c.chunkSize)
	for start := 0; start < len(fresh); start += c.chunkSize {
		end := min(start+c.chunkSize, len(fresh))

		var b strings.Builder
		if start == 0 {
			b.WriteString(head.String())
			b.WriteString("<b>🔍 New listings found:</b>\n\n")
		} else {
			b.WriteString("<b>Continued:</b>\n\n")
		}
		for i := start; i < end; i++ {
			b.WriteString(entry(i+1, fresh[i]))
		}
		chunks = append(chunks, strings.TrimRight(b.String(), "\n"))
	}
	return chunks
}

// entry renders one numbered link. Numbers are global across chunks.
func entry(n int, l models.Listing) string {
	label := l.Title
	if label == "" {
		label = l.URL
	}
	return fmt.Sprintf("%d. <a href=\"%s\">%s</a>\n", n, html.EscapeString(l.URL), html.EscapeString(label))
}
