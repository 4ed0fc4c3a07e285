package domain

import "time"

// IngestResult summarises one document ingestion.
type IngestResult struct {
	// DocumentID is the stored document's ID.
	DocumentID string

	// URI is the document's original location.
	URI string

	// Title is the extracted title.
	Title string

	// Chunks is the number of chunks produced and stored.
	Chunks int

	// Tokens is the document's total token count.
	Tokens int

	// Replaced reports that an earlier version of the same URI was
	// deleted before reinsertion.
	Replaced bool

	// Duration is the wall-clock ingestion time.
	Duration time.Duration

	// Err records why this document failed to ingest, nil on success.
	// A batch ingest reports per-document failures here rather than
	// aborting the remaining documents.
	Err error
}

// CorpusStats describes the stored corpus.
type CorpusStats struct {
	// Documents is the number of stored documents.
	Documents int `json:"documents"`

	// Chunks is the number of stored chunks.
	Chunks int `json:"chunks"`

	// Vectors is the number of vectors held by the vector store.
	Vectors int `json:"vectors"`

	// EmbeddingModel is the active embedding model name.
	EmbeddingModel string `json:"embedding_model"`

	// LLMModel is the active generation model name.
	LLMModel string `json:"llm_model"`

	// RerankModel is the active rerank model name, empty when the
	// reranker is not configured.
	RerankModel string `json:"rerank_model,omitempty"`
}

// ComponentHealth reports one provider's reachability.
type ComponentHealth struct {
	// Name identifies the component.
	Name string `json:"name"`

	// Configured reports whether the component has usable settings.
	Configured bool `json:"configured"`

	// Healthy reports whether the component answered a ping.
	// Always false when not configured.
	Healthy bool `json:"healthy"`

	// Detail carries the failure reason, empty when healthy.
	Detail string `json:"detail,omitempty"`
}

// HealthStatus aggregates component health for the health endpoint.
type HealthStatus struct {
	// Status is "ok" when every configured component is healthy,
	// "degraded" otherwise.
	Status string `json:"status"`

	// Components lists per-provider health.
	Components []ComponentHealth `json:"components"`
}
