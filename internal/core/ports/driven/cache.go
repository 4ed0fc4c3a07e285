package driven

import "context"

// EmbeddingCache stores query embeddings keyed by text.
// This is an optional service - when nil, every query pays the embedding
// round trip. Cache failures are never fatal; callers fall through to the
// embedding provider.
//
// Implementations may include:
//   - Redis (shared across processes, with TTL)
type EmbeddingCache interface {
	// Get returns the cached vector for the key.
	// The boolean reports whether the key was present.
	Get(ctx context.Context, key string) ([]float32, bool, error)

	// Set stores a vector under the key.
	Set(ctx context.Context, key string, vector []float32) error

	// Close releases resources.
	Close() error
}
