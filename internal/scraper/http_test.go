package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestHTTPFetcher_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><a href="/resume/1">Dev</a></body></html>`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, "", "")
	markup, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, markup, `/resume/1`)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, DefaultAcceptLanguage, gotLang)
	assert.Equal(t, "http", f.Name())
}

func TestHTTPFetcher_DecodesDeclaredCharset(t *testing.T) {
	encoded, err := charmap.Windows1251.NewEncoder().String("<html><body><p>Разработчик Python</p></body></html>")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		_, _ = w.Write([]byte(encoded))
	}))
	defer srv.Close()

	markup, err := NewHTTPFetcher(5*time.Second, "test-agent", "ru").Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, markup, "Разработчик Python")
}

func TestHTTPFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "forbidden", status: http.StatusForbidden},
		{name: "server error", status: http.StatusBadGateway},
		{name: "not found", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewHTTPFetcher(5*time.Second, "", "").Fetch(context.Background(), srv.URL)
			assert.Error(t, err)
		})
	}
}

func TestHTTPFetcher_HonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPFetcher(0, "", "").Fetch(ctx, srv.URL)
	assert.Error(t, err)
}
