package models

import (
	"time"
)

// Listing is a single resume entry discovered on the search page.
// URL is the identity: two listings with the same URL are the same resume.
type Listing struct {
	URL     string    `json:"url"`
	Title   string    `json:"title"`
	Context string    `json:"context"`
	SeenAt  time.Time `json:"seen_at,omitempty"`
}

// StoreEntry is the persisted form of a Listing.
type StoreEntry struct {
	ID      int64     `json:"id"`
	URL     string    `json:"url"`
	Title   string    `json:"title"`
	Context string    `json:"context"`
	SeenAt  time.Time `json:"seen_at"`
}

// Listing converts the entry back into a Listing.
func (e StoreEntry) Listing() Listing {
	return Listing{URL: e.URL, Title: e.Title, Context: e.Context, SeenAt: e.SeenAt}
}

type ClassifiedListing struct {
	Listing Listing `json:"listing"`
	IsNew   bool    `json:"is_new"`
}

// Stats are counts taken from the store after classification.
type Stats struct {
	Today int64 `json:"today"`
	Total int64 `json:"total"`
}

// RunResult is the in-memory outcome of one run, in extraction order.
// It is never persisted.
type RunResult struct {
	Source   string              `json:"source"`
	Listings []ClassifiedListing `json:"listings"`
}

// New returns the listings first seen in this run, in extraction order.
func (r RunResult) New() []Listing {
	var out []Listing
	for _, l := range r.Listings {
		if l.IsNew {
			out = append(out, l.Listing)
		}
	}
	return out
}

func (r RunResult) NewCount() int {
	n := 0
	for _, l := range r.Listings {
		if l.IsNew {
			n++
		}
	}
	return n
}
