package driven

import "context"

// Reranker rescores retrieved chunks against the query with a cross-encoder.
// This is an optional service - when nil or unreachable, the pipeline falls
// back to retrieval order and marks the response degraded.
//
// Implementations may include:
//   - Cohere (rerank-english-v3.0)
type Reranker interface {
	// Rerank scores each document against the query and returns the topN
	// results ordered by descending relevance. Index refers into the
	// documents slice as passed.
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)

	// ModelName returns the name of the rerank model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// RerankResult is a single reranked document.
type RerankResult struct {
	// Index is the position of the document in the input slice.
	Index int

	// Score is the cross-encoder relevance score (0-1).
	Score float64
}
