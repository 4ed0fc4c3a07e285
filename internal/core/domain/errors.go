package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a configuration value is out of range
	// or inconsistent. Rejected at configuration time, never at request time.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedType indicates an unknown source or normaliser type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding provider failed or is
	// not configured. Retried with backoff before being surfaced.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store failed.
	// Queries cannot proceed without retrieval.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrRerankUnavailable indicates the reranker failed. Never fatal:
	// the pipeline degrades to raw retrieval order instead.
	ErrRerankUnavailable = errors.New("rerank service unavailable")

	// ErrGenerationUnavailable indicates the LLM provider failed.
	// Fatal to the query; not retried.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrSourceUnavailable indicates a document source cannot be read.
	ErrSourceUnavailable = errors.New("document source unavailable")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
