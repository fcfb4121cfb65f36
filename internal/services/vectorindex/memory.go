package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// MemoryIndex is an in-process cosine-similarity index. It backs local
// development and tests; data does not survive a restart.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string][]memoryPoint
	dims        map[string]int
}

type memoryPoint struct {
	id        string
	vector    []float32
	payload   map[string]any
	createdAt time.Time
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		collections: make(map[string][]memoryPoint),
		dims:        make(map[string]int),
	}
}

// EnsureCollection registers the collection and its dimension
func (m *MemoryIndex) EnsureCollection(_ context.Context, name string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.dims[name]; ok {
		if existing != dim {
			return fmt.Errorf("collection %s exists with dimension %d, requested %d", name, existing, dim)
		}
		return nil
	}
	m.dims[name] = dim
	m.collections[name] = nil
	return nil
}

// Upsert inserts points; existing ids are replaced
func (m *MemoryIndex) Upsert(_ context.Context, collection string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dims[collection]; !ok {
		return fmt.Errorf("collection %s does not exist", collection)
	}

	existing := m.collections[collection]
	for _, p := range points {
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		replaced := false
		for i := range existing {
			if existing[i].id == p.ID {
				existing[i] = memoryPoint{p.ID, p.Vector, p.Payload, createdAt}
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, memoryPoint{p.ID, p.Vector, p.Payload, createdAt})
		}
	}
	m.collections[collection] = existing
	return nil
}

// Search returns points above the similarity threshold, best match first
func (m *MemoryIndex) Search(_ context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]ScoredPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.dims[collection]; !ok {
		return nil, fmt.Errorf("collection %s does not exist", collection)
	}
	if limit <= 0 {
		limit = 1
	}

	var results []ScoredPoint
	for _, p := range m.collections[collection] {
		score := cosineSimilarity(vector, p.vector)
		if score < scoreThreshold {
			continue
		}
		results = append(results, ScoredPoint{ID: p.id, Score: score, Payload: p.payload})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteOlderThan removes points created before cutoff
func (m *MemoryIndex) DeleteOlderThan(_ context.Context, collection string, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dims[collection]; !ok {
		return fmt.Errorf("collection %s does not exist", collection)
	}

	kept := m.collections[collection][:0]
	for _, p := range m.collections[collection] {
		if !p.createdAt.Before(cutoff) {
			kept = append(kept, p)
		}
	}
	m.collections[collection] = kept
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
