// Fetch the search page
// Extract listing candidates from the markup

package scraper

import (
	"context"
)

// Fetcher loads the raw markup of one search results page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)

	// Name is the fetch strategy (http, browser, ...)
	Name() string
}
