package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulrag/soulrag-go/pkg/index"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), &Config{
		DBPath: filepath.Join(t.TempDir(), "index.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_InsertAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*index.Chunk{
		{ID: 1, UserID: "u1", Text: "close match", Embedding: []float64{1, 0, 0}, Timestamp: "2026-08-29"},
		{ID: 2, UserID: "u1", Text: "partial match", Embedding: []float64{1, 1, 0}, Timestamp: "2026-08-29"},
		{ID: 3, UserID: "u1", Text: "orthogonal", Embedding: []float64{0, 0, 1}, Timestamp: "2026-08-29"},
	}
	require.NoError(t, store.Insert(ctx, chunks))

	results, err := store.Search(ctx, []float64{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "close match", results[0].Text)
	assert.Equal(t, "partial match", results[1].Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestStore_SearchLimitZeroReturnsAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*index.Chunk{
		{ID: 1, UserID: "u1", Text: "a", Embedding: []float64{1, 0}, Timestamp: "2026-08-29"},
		{ID: 2, UserID: "u1", Text: "b", Embedding: []float64{0, 1}, Timestamp: "2026-08-29"},
	}
	require.NoError(t, store.Insert(ctx, chunks))

	results, err := store.Search(ctx, []float64{1, 0}, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestStore_InsertIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Duplicate primary key fails mid-batch; nothing may be committed.
	chunks := []*index.Chunk{
		{ID: 1, UserID: "u1", Text: "first", Embedding: []float64{1, 0}, Timestamp: "2026-08-29"},
		{ID: 1, UserID: "u1", Text: "duplicate id", Embedding: []float64{0, 1}, Timestamp: "2026-08-29"},
	}
	require.Error(t, store.Insert(ctx, chunks))

	results, err := store.Search(ctx, []float64{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float64{1, 0}, []float64{1}))
	assert.Zero(t, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}
