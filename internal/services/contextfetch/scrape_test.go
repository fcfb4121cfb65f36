package contextfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline-ai/ragline/internal/models"
)

func newTestScraper() *Scraper {
	return NewScraper(models.ScrapeConfig{Enabled: true, MaxURLs: 3})
}

func TestExtractURLs(t *testing.T) {
	t.Parallel()

	s := newTestScraper()

	t.Run("finds and deduplicates", func(t *testing.T) {
		t.Parallel()
		urls := s.ExtractURLs("see https://example.com/a and http://example.org, also https://example.com/a again")
		assert.Equal(t, []string{"https://example.com/a", "http://example.org"}, urls)
	})

	t.Run("strips trailing punctuation", func(t *testing.T) {
		t.Parallel()
		urls := s.ExtractURLs("read https://example.com/docs.")
		assert.Equal(t, []string{"https://example.com/docs"}, urls)
	})

	t.Run("caps at max urls", func(t *testing.T) {
		t.Parallel()
		urls := s.ExtractURLs("https://a.com https://b.com https://c.com https://d.com")
		assert.Len(t, urls, 3)
	})

	t.Run("no urls", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, s.ExtractURLs("plain text without links"))
	})
}

func TestFetchURLContentExtractsParagraphs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<nav><p>navigation noise</p></nav>
			<article><p>First paragraph.</p><p>Second paragraph.</p></article>
		</body></html>`))
	}))
	t.Cleanup(srv.Close)

	s := newTestScraper()
	content := s.FetchURLContent(context.Background(), "summarize "+srv.URL)

	require.NotEmpty(t, content)
	assert.Contains(t, content, "Content from "+srv.URL)
	assert.Contains(t, content, "First paragraph.")
	assert.Contains(t, content, "Second paragraph.")
	assert.NotContains(t, content, "navigation noise", "article region wins over the rest of the page")
}

func TestFetchURLContentFallsBackToBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Body only text.</p></body></html>`))
	}))
	t.Cleanup(srv.Close)

	s := newTestScraper()
	content := s.FetchURLContent(context.Background(), srv.URL)
	assert.Contains(t, content, "Body only text.")
}

func TestFetchURLContentSkipsFailedPages(t *testing.T) {
	t.Parallel()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(bad.Close)

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><main><p>Good page.</p></main></body></html>`))
	}))
	t.Cleanup(good.Close)

	s := newTestScraper()
	content := s.FetchURLContent(context.Background(), bad.URL+" "+good.URL)
	assert.Contains(t, content, "Good page.")
	assert.NotContains(t, content, bad.URL)
}

func TestFetchURLContentNoURLs(t *testing.T) {
	t.Parallel()

	s := newTestScraper()
	assert.Empty(t, s.FetchURLContent(context.Background(), "no links here"))
}
