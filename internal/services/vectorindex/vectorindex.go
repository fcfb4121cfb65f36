// Package vectorindex abstracts the external nearest-neighbor search
// service. Collections are cosine-distance keyed; entries are immutable
// once written and removed only by age-based eviction.
package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/ragline-ai/ragline/internal/models"
)

// Point is one entry to upsert into a collection
type Point struct {
	ID        string
	Vector    []float32
	Payload   map[string]any
	CreatedAt time.Time
}

// ScoredPoint is one search result, ordered by descending similarity
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Index is the similarity-search contract. Implementations must be safe
// for concurrent use; writes are additive upserts keyed by fresh unique
// ids, so concurrent writers cannot corrupt each other.
type Index interface {
	// EnsureCollection creates the named collection if missing
	EnsureCollection(ctx context.Context, name string, dim int) error
	// Upsert inserts the given points
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns up to limit points whose cosine similarity to vector
	// is at least scoreThreshold, best match first
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]ScoredPoint, error)
	// DeleteOlderThan removes every point created before cutoff
	DeleteOlderThan(ctx context.Context, collection string, cutoff time.Time) error
}

// New builds the configured index backend
func New(ctx context.Context, cfg models.VectorIndexConfig) (Index, error) {
	switch cfg.Backend {
	case models.VectorBackendQdrant:
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant backend selected but not configured")
		}
		return NewQdrantIndex(*cfg.Qdrant), nil
	case models.VectorBackendPgvector:
		if cfg.Postgres == nil {
			return nil, fmt.Errorf("pgvector backend selected but not configured")
		}
		return NewPgvectorIndex(ctx, *cfg.Postgres)
	case models.VectorBackendMemory:
		return NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unsupported vector index backend: %s", cfg.Backend)
	}
}
