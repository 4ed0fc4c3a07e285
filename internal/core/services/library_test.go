package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/adapters/driven/storage/memory"
	memvec "github.com/custodia-labs/docent/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

func newLibrary(t *testing.T) (*LibraryService, *memory.DocumentStore, *memvec.Store) {
	t.Helper()
	docStore := memory.NewDocumentStore()
	vectors := memvec.NewStore()
	return NewLibraryService(docStore, vectors, testSettings()), docStore, vectors
}

func storeDocWithChunks(t *testing.T, docStore *memory.DocumentStore, vectors *memvec.Store, id string, texts ...string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	doc := &domain.Document{
		ID:         id,
		URI:        "file:///" + id + ".md",
		Title:      "Title of " + id,
		TokenCount: 42,
		Metadata:   map[string]any{"pages": 3},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, docStore.SaveDocument(ctx, doc))

	chunks := make([]domain.Chunk, len(texts))
	entries := make([]driven.VectorEntry, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:            id + "-chunk-" + string(rune('a'+i)),
			DocumentID:    id,
			Text:          text,
			SequenceIndex: i,
		}
		entries[i] = driven.VectorEntry{
			ChunkID:    chunks[i].ID,
			DocumentID: id,
			Vector:     []float32{float32(i), 1, 0},
		}
	}
	require.NoError(t, docStore.SaveChunks(ctx, chunks))
	require.NoError(t, vectors.Upsert(ctx, entries))
}

func TestLibraryService_List(t *testing.T) {
	svc, docStore, vectors := newLibrary(t)
	storeDocWithChunks(t, docStore, vectors, "doc-1", "one")
	storeDocWithChunks(t, docStore, vectors, "doc-2", "two")

	docs, err := svc.List(context.Background())

	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestLibraryService_Get_NotFound(t *testing.T) {
	svc, _, _ := newLibrary(t)

	_, err := svc.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLibraryService_GetContent_JoinsChunksInOrder(t *testing.T) {
	svc, docStore, vectors := newLibrary(t)
	storeDocWithChunks(t, docStore, vectors, "doc-1", "first part", "second part", "third part")

	content, err := svc.GetContent(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "first part\nsecond part\nthird part", content)
}

func TestLibraryService_GetDetails(t *testing.T) {
	svc, docStore, vectors := newLibrary(t)
	storeDocWithChunks(t, docStore, vectors, "doc-1", "a", "b")

	details, err := svc.GetDetails(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "doc-1", details.ID)
	assert.Equal(t, "Title of doc-1", details.Title)
	assert.Equal(t, 2, details.ChunkCount)
	assert.Equal(t, 42, details.TokenCount)
	assert.Equal(t, "3", details.Metadata["pages"])
}

func TestLibraryService_Delete_RemovesEverything(t *testing.T) {
	svc, docStore, vectors := newLibrary(t)
	storeDocWithChunks(t, docStore, vectors, "doc-1", "a", "b")
	storeDocWithChunks(t, docStore, vectors, "doc-2", "c")
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "doc-1"))

	_, err := docStore.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := docStore.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// Only doc-2's vector remains.
	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The other document is untouched.
	_, err = docStore.GetDocument(ctx, "doc-2")
	assert.NoError(t, err)
}

func TestLibraryService_Delete_NotFound(t *testing.T) {
	svc, _, _ := newLibrary(t)

	err := svc.Delete(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLibraryService_Stats(t *testing.T) {
	svc, docStore, vectors := newLibrary(t)
	storeDocWithChunks(t, docStore, vectors, "doc-1", "a", "b", "c")
	storeDocWithChunks(t, docStore, vectors, "doc-2", "d")

	stats, err := svc.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 4, stats.Chunks)
	assert.Equal(t, 4, stats.Vectors)
	assert.NotEmpty(t, stats.EmbeddingModel)
	assert.NotEmpty(t, stats.LLMModel)
}
