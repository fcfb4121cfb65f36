package vectorindex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexSearchOrdersByScore(t *testing.T) {
	t.Parallel()

	index := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, index.EnsureCollection(ctx, "c", 2))

	require.NoError(t, index.Upsert(ctx, "c", []Point{
		{ID: "exact", Vector: []float32{1, 0}, Payload: map[string]any{"v": "exact"}},
		{ID: "close", Vector: []float32{0.9, 0.43588989}, Payload: map[string]any{"v": "close"}},
		{ID: "orthogonal", Vector: []float32{0, 1}, Payload: map[string]any{"v": "orthogonal"}},
	}))

	results, err := index.Search(ctx, "c", []float32{1, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2, "orthogonal vector is below threshold")
	assert.Equal(t, "exact", results[0].ID)
	assert.Equal(t, "close", results[1].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.9, results[1].Score, 1e-6)
}

func TestMemoryIndexSearchRespectsLimit(t *testing.T) {
	t.Parallel()

	index := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, index.EnsureCollection(ctx, "c", 2))

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, index.Upsert(ctx, "c", []Point{{ID: id, Vector: []float32{1, 0}}}))
	}

	results, err := index.Search(ctx, "c", []float32{1, 0}, 1, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryIndexUpsertReplacesByID(t *testing.T) {
	t.Parallel()

	index := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, index.EnsureCollection(ctx, "c", 2))

	require.NoError(t, index.Upsert(ctx, "c", []Point{{ID: "p", Vector: []float32{1, 0}, Payload: map[string]any{"v": "old"}}}))
	require.NoError(t, index.Upsert(ctx, "c", []Point{{ID: "p", Vector: []float32{1, 0}, Payload: map[string]any{"v": "new"}}}))

	results, err := index.Search(ctx, "c", []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Payload["v"])
}

func TestMemoryIndexDeleteOlderThan(t *testing.T) {
	t.Parallel()

	index := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, index.EnsureCollection(ctx, "c", 2))

	now := time.Now().UTC()
	require.NoError(t, index.Upsert(ctx, "c", []Point{
		{ID: "old", Vector: []float32{1, 0}, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "fresh", Vector: []float32{1, 0}, CreatedAt: now},
	}))

	require.NoError(t, index.DeleteOlderThan(ctx, "c", now.Add(-24*time.Hour)))

	results, err := index.Search(ctx, "c", []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fresh", results[0].ID)
}

func TestMemoryIndexUnknownCollection(t *testing.T) {
	t.Parallel()

	index := NewMemoryIndex()
	ctx := context.Background()

	_, err := index.Search(ctx, "missing", []float32{1, 0}, 1, 0)
	assert.Error(t, err)

	err = index.Upsert(ctx, "missing", []Point{{ID: "p", Vector: []float32{1, 0}}})
	assert.Error(t, err)
}

func TestEnsureCollectionDimensionConflict(t *testing.T) {
	t.Parallel()

	index := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, index.EnsureCollection(ctx, "c", 2))
	require.NoError(t, index.EnsureCollection(ctx, "c", 2), "same dimension is a no-op")
	assert.Error(t, index.EnsureCollection(ctx, "c", 3))
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}), "mismatched dimensions")
	assert.Zero(t, cosineSimilarity(nil, nil))
}
