package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0 Safari/537.36"
	DefaultAcceptLanguage = "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7"

	// maxPageBytes bounds how much of a response body is read.
	maxPageBytes = 10 << 20
)

// HTTPFetcher downloads the page with a plain GET and decodes it to UTF-8.
type HTTPFetcher struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
}

func NewHTTPFetcher(timeout time.Duration, userAgent, acceptLanguage string) *HTTPFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if acceptLanguage == "" {
		acceptLanguage = DefaultAcceptLanguage
	}
	return &HTTPFetcher{
		client:         &http.Client{Timeout: timeout},
		userAgent:      userAgent,
		acceptLanguage: acceptLanguage,
	}
}

func (f *HTTPFetcher) Name() string {
	return "http"
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", f.acceptLanguage)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to fetch %s: unexpected status %s", url, resp.Status)
	}

	//decode to UTF-8 using the header, <meta> tags or content sniffing
	body, err := charset.NewReader(io.LimitReader(resp.Body, maxPageBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to detect page encoding: %w", err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}
	return string(data), nil
}
