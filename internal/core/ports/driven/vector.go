package driven

import "context"

// VectorStore persists chunk embeddings and performs similarity search.
//
// Implementations may include:
//   - In-memory (exact cosine scan, no persistence)
//   - SQLite (persistent, exact cosine scan)
//   - Qdrant (remote, approximate nearest neighbour)
type VectorStore interface {
	// Upsert inserts or replaces vectors for the given entries.
	Upsert(ctx context.Context, entries []VectorEntry) error

	// Search finds the topK nearest neighbours to the query vector.
	// Results are ordered by descending cosine similarity.
	Search(ctx context.Context, vector []float32, topK int) ([]VectorHit, error)

	// DeleteByDocument removes all vectors belonging to a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// Reset removes all vectors from the store.
	Reset(ctx context.Context) error

	// Ping validates the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorEntry is a single embedding to be stored.
type VectorEntry struct {
	// ChunkID identifies the chunk this vector belongs to.
	ChunkID string

	// DocumentID identifies the parent document, used for deletion.
	DocumentID string

	// Vector is the embedding.
	Vector []float32
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
