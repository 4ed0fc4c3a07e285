package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close() //nolint:errcheck
	})
	return store
}

func seedVectors(t *testing.T, store *Store) {
	t.Helper()
	err := store.Upsert(context.Background(), []driven.VectorEntry{
		{ChunkID: "c-1", DocumentID: "doc-1", Vector: []float32{1, 0, 0}},
		{ChunkID: "c-2", DocumentID: "doc-1", Vector: []float32{0, 1, 0}},
		{ChunkID: "c-3", DocumentID: "doc-2", Vector: []float32{0.9, 0.1, 0}},
	})
	require.NoError(t, err)
}

func TestStore_SearchOrdersBySimilarity(t *testing.T) {
	store := newTestStore(t)
	seedVectors(t, store)

	hits, err := store.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c-1", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, "c-3", hits[1].ChunkID)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
}

func TestStore_SearchTopKBoundsResults(t *testing.T) {
	store := newTestStore(t)
	seedVectors(t, store)

	hits, err := store.Search(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestStore_UpsertReplacesVector(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedVectors(t, store)

	err := store.Upsert(ctx, []driven.VectorEntry{
		{ChunkID: "c-1", DocumentID: "doc-1", Vector: []float32{0, 0, 1}},
	})
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	hits, err := store.Search(ctx, []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c-1", hits[0].ChunkID)
}

func TestStore_DeleteByDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedVectors(t, store)

	require.NoError(t, store.DeleteByDocument(ctx, "doc-1"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedVectors(t, store)

	require.NoError(t, store.Reset(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []driven.VectorEntry{
		{ChunkID: "c-1", DocumentID: "doc-1", Vector: []float32{1, 0}},
	}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_Ping(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestFloat32SliceRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3.75}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	assert.Equal(t, in, out)
}
