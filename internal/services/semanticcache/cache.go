// Package semanticcache avoids recomputation of retrieved context and of
// final answers for semantically similar queries. Two collections share
// the same key: the embedding of the user query. A cached answer needs a
// near-exact match; cached context only needs topical relevance, so the
// two collections carry independent thresholds.
package semanticcache

import (
	"context"
	"time"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/embedding"
	"github.com/ragline-ai/ragline/internal/services/vectorindex"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// HitKind tags the outcome of a cache check
type HitKind int

const (
	// KindNone means neither collection matched
	KindNone HitKind = iota
	// KindDocuments means the document-context collection matched
	KindDocuments
	// KindResponse means the full-response collection matched
	KindResponse
)

// Hit is the tagged result of a cache check. Only the field matching
// Kind is populated.
type Hit struct {
	Kind      HitKind
	Response  string
	Documents []string
}

// Cache is the two-collection semantic cache over a vector index.
// A disabled cache still embeds queries in Check so retrieval keeps
// its vector, but never matches and never stores.
type Cache struct {
	index    vectorindex.Index
	embedder embedding.Embedder
	cfg      models.SemanticCacheConfig
	dim      int
	enabled  bool
}

// New creates a semantic cache over the given index and embedder
func New(index vectorindex.Index, embedder embedding.Embedder, cfg models.SemanticCacheConfig, dim int) *Cache {
	return &Cache{
		index:    index,
		embedder: embedder,
		cfg:      cfg,
		dim:      dim,
		enabled:  cfg.Enabled == nil || *cfg.Enabled,
	}
}

// Enabled reports whether cache lookups and writes are active
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Init ensures both cache collections exist
func (c *Cache) Init(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	if err := c.index.EnsureCollection(ctx, c.cfg.DocCollection, c.dim); err != nil {
		return err
	}
	return c.index.EnsureCollection(ctx, c.cfg.ResponseCollection, c.dim)
}

// Check embeds the query exactly once and consults the response
// collection first, then the document collection. The query vector is
// always returned so callers can insert later without re-embedding.
func (c *Cache) Check(ctx context.Context, query string) (Hit, []float32, error) {
	queryVector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return Hit{}, nil, err
	}
	if !c.enabled {
		return Hit{Kind: KindNone}, queryVector, nil
	}

	// A cached full response makes document context irrelevant, so at
	// most one collection produces the hit.
	points, err := c.index.Search(ctx, c.cfg.ResponseCollection, queryVector, 1, c.cfg.ResponseThreshold)
	if err != nil {
		return Hit{}, queryVector, err
	}
	if len(points) > 0 {
		if response, ok := points[0].Payload["response"].(string); ok {
			fiberlog.Debugf("semantic cache: response hit (score=%.4f)", points[0].Score)
			return Hit{Kind: KindResponse, Response: response}, queryVector, nil
		}
	}

	points, err = c.index.Search(ctx, c.cfg.DocCollection, queryVector, 1, c.cfg.DocumentThreshold)
	if err != nil {
		return Hit{}, queryVector, err
	}
	if len(points) > 0 {
		if docs := payloadStrings(points[0].Payload["documents"]); len(docs) > 0 {
			fiberlog.Debugf("semantic cache: document hit (score=%.4f)", points[0].Score)
			return Hit{Kind: KindDocuments, Documents: docs}, queryVector, nil
		}
	}

	return Hit{Kind: KindNone}, queryVector, nil
}

// InsertDocuments stores retrieved document text keyed by the query vector
func (c *Cache) InsertDocuments(ctx context.Context, queryVector []float32, documents []string) error {
	if !c.enabled {
		return nil
	}
	return c.index.Upsert(ctx, c.cfg.DocCollection, []vectorindex.Point{{
		ID:        uuid.NewString(),
		Vector:    queryVector,
		Payload:   map[string]any{"documents": documents},
		CreatedAt: time.Now().UTC(),
	}})
}

// InsertResponse stores a final answer keyed by the query vector
func (c *Cache) InsertResponse(ctx context.Context, queryVector []float32, response string) error {
	if !c.enabled {
		return nil
	}
	return c.index.Upsert(ctx, c.cfg.ResponseCollection, []vectorindex.Point{{
		ID:        uuid.NewString(),
		Vector:    queryVector,
		Payload:   map[string]any{"response": response},
		CreatedAt: time.Now().UTC(),
	}})
}

// EvictExpired deletes entries older than ttl from both collections.
// Best effort: a failure on one collection does not stop the other.
func (c *Cache) EvictExpired(ctx context.Context, ttl time.Duration) error {
	cutoff := time.Now().UTC().Add(-ttl)

	var firstErr error
	for _, collection := range []string{c.cfg.DocCollection, c.cfg.ResponseCollection} {
		if err := c.index.DeleteOlderThan(ctx, collection, cutoff); err != nil {
			fiberlog.Warnf("semantic cache: eviction from %s failed: %v", collection, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// TTL returns the configured entry lifetime
func (c *Cache) TTL() time.Duration {
	return time.Duration(c.cfg.TTLSeconds) * time.Second
}

// payloadStrings coerces a payload value into a string slice. Payloads
// that round-tripped through JSON arrive as []any.
func payloadStrings(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return nil
	}
}
