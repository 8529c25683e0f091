package scraper

import (
	"iter"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"go-resume-watch/internal/models"

	"github.com/PuerkitoBio/goquery"
)

const (
	MaxTitleLength   = 120
	MaxContextLength = 800

	DefaultListingPath = "/resume/"
	DefaultCardMarker  = "resume-serp__resume|serp-item"

	// cardAttr holds the marker the fallback strategy matches against.
	cardAttr = "data-qa"
)

// Extractor turns a search results page into listing candidates.
type Extractor struct {
	listingPath string
	cardMarker  *regexp.Regexp
}

type ExtractorOption func(*Extractor)

// WithListingPath sets the path segment that identifies a listing link.
func WithListingPath(segment string) ExtractorOption {
	return func(e *Extractor) {
		if segment != "" {
			e.listingPath = segment
		}
	}
}

// WithCardMarker sets the pattern matched against the data-qa attribute of
// listing cards when no listing link is found.
func WithCardMarker(re *regexp.Regexp) ExtractorOption {
	return func(e *Extractor) {
		if re != nil {
			e.cardMarker = re
		}
	}
}

func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		listingPath: DefaultListingPath,
		cardMarker:  regexp.MustCompile(DefaultCardMarker),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract yields the listings found in markup in document order. The page is
// parsed when iteration starts. Card markers are only scanned when no listing
// link was found, and no URL is yielded twice.
func (e *Extractor) Extract(markup, baseURL string) iter.Seq[models.Listing] {
	return func(yield func(models.Listing) bool) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
		if err != nil {
			return
		}
		base, err := url.Parse(baseURL)
		if err != nil {
			base = nil
		}

		seen := make(map[string]struct{})
		emitted := 0
		stopped := false

		doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			ref, ok := resolveListingURL(base, href)
			if !ok || !strings.Contains(ref.Path, e.listingPath) {
				return true
			}
			full := ref.String()
			if _, dup := seen[full]; dup {
				return true
			}
			seen[full] = struct{}{}

			container := a.Parent()
			title := spacedText(a)
			if title == "" {
				title = truncate(spacedText(container), MaxTitleLength)
			}

			emitted++
			if !yield(models.Listing{
				URL:     full,
				Title:   title,
				Context: truncate(textWithoutLinks(container), MaxContextLength),
			}) {
				stopped = true
				return false
			}
			return true
		})

		if stopped || emitted > 0 {
			return
		}

		//markup changed: fall back to listing cards
		doc.Find("[" + cardAttr + "]").EachWithBreak(func(_ int, card *goquery.Selection) bool {
			marker, _ := card.Attr(cardAttr)
			if !e.cardMarker.MatchString(marker) {
				return true
			}
			a := card.Find("a[href]").First()
			if a.Length() == 0 {
				return true
			}
			href, _ := a.Attr("href")
			ref, ok := resolveListingURL(base, href)
			if !ok {
				return true
			}
			full := ref.String()
			if _, dup := seen[full]; dup {
				return true
			}
			seen[full] = struct{}{}

			cardText := spacedText(card)
			title := spacedText(a)
			if title == "" {
				title = truncate(cardText, MaxTitleLength)
			}
			return yield(models.Listing{
				URL:     full,
				Title:   title,
				Context: truncate(cardText, MaxContextLength),
			})
		})
	}
}

// ExtractAll collects Extract into a slice.
func (e *Extractor) ExtractAll(markup, baseURL string) []models.Listing {
	return slices.Collect(e.Extract(markup, baseURL))
}

// resolveListingURL drops the query string and fragment of href and resolves
// it against base. Only the resulting path identifies a listing.
func resolveListingURL(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	if href == "" {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	ref.RawQuery = ""
	ref.Fragment = ""
	ref.RawFragment = ""
	return ref, true
}
