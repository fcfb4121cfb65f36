// Package contextfetch retrieves supplementary grounding text for a
// prompt: knowledge-base passages by vector similarity and the content
// of any URLs the prompt mentions. Failures degrade to "no context
// available" and never abort the turn.
package contextfetch

import (
	"context"
	"sync"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/vectorindex"
)

// Content is the outcome of one context fetch. Empty fields mean that
// source was unavailable; Documents carries the raw retrieved passages
// for cache insertion.
type Content struct {
	Documents  []string
	RAGContent string
	URLContent string
}

// Fetcher runs the RAG lookup and URL scrape for one prompt
type Fetcher struct {
	retriever *Retriever
	scraper   *Scraper
}

// NewFetcher creates a fetcher; scraper may be nil when scraping is disabled
func NewFetcher(index vectorindex.Index, knowledgeCfg models.KnowledgeConfig, scrapeCfg models.ScrapeConfig) *Fetcher {
	f := &Fetcher{
		retriever: NewRetriever(index, knowledgeCfg),
	}
	if scrapeCfg.Enabled {
		f.scraper = NewScraper(scrapeCfg)
	}
	return f
}

// Fetch retrieves RAG passages and URL content concurrently. The query
// vector is reused from the cache check so the prompt is embedded only
// once per turn. Cancelling ctx abandons whatever is still in flight;
// partial results are discarded silently.
func (f *Fetcher) Fetch(ctx context.Context, prompt string, queryVector []float32) Content {
	var (
		wg      sync.WaitGroup
		content Content
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		content.Documents, content.RAGContent = f.retriever.Retrieve(ctx, queryVector)
	}()

	if f.scraper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content.URLContent = f.scraper.FetchURLContent(ctx, prompt)
		}()
	}

	wg.Wait()

	select {
	case <-ctx.Done():
		// Cancelled mid-fetch: the caller must never see partial context
		return Content{}
	default:
		return content
	}
}
