package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings,
// generation or reranking.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderCohere is Cohere cloud API (reranking).
	AIProviderCohere AIProvider = "cohere"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderOpenAI, AIProviderAnthropic, AIProviderOllama, AIProviderCohere:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderCohere:
		return "Cohere (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies a vector store implementation.
type VectorBackend string

// Available vector store backends.
const (
	// VectorBackendMemory keeps vectors in process memory. Useful for
	// tests and throwaway sessions; nothing survives restart.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendSQLite persists vectors in the local SQLite database.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendQdrant uses a Qdrant server over HTTP.
	VectorBackendQdrant VectorBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendQdrant:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// PipelineSettings holds the query pipeline tuning knobs.
type PipelineSettings struct {
	// ChunkSize is the chunk window size in tokens.
	ChunkSize int

	// ChunkOverlap is the token overlap between consecutive chunks.
	// Must be smaller than ChunkSize.
	ChunkOverlap int

	// TopKRetrieval is the first-stage dense search depth.
	TopKRetrieval int

	// TopKRerank is the number of reranked results kept.
	TopKRerank int

	// MinSimilarityScore is recognised but unused at the retrieval
	// stage: retrieval is recall-first, filtering happens after rerank.
	MinSimilarityScore float64

	// MinRerankScore is the minimum cross-encoder score a reranked
	// result needs to count as relevant context.
	MinRerankScore float64

	// ChatHistoryTurns is the number of past exchanges kept.
	ChatHistoryTurns int

	// DisplayMinScore hides sources scoring below it from the returned
	// source list. Display-only: such sources still ground generation.
	DisplayMinScore float64
}

// Validate checks pipeline settings consistency.
func (p PipelineSettings) Validate() error {
	if p.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidConfig, p.ChunkSize)
	}
	if p.ChunkOverlap <= 0 {
		return fmt.Errorf("%w: chunk_overlap must be positive, got %d", ErrInvalidConfig, p.ChunkOverlap)
	}
	if p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			ErrInvalidConfig, p.ChunkOverlap, p.ChunkSize)
	}
	if p.TopKRetrieval <= 0 {
		return fmt.Errorf("%w: top_k_retrieval must be positive, got %d", ErrInvalidConfig, p.TopKRetrieval)
	}
	if p.TopKRerank <= 0 {
		return fmt.Errorf("%w: top_k_rerank must be positive, got %d", ErrInvalidConfig, p.TopKRerank)
	}
	if p.ChatHistoryTurns < 0 {
		return fmt.Errorf("%w: chat_history_turns must not be negative, got %d", ErrInvalidConfig, p.ChatHistoryTurns)
	}
	return nil
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama, or overrides).
	BaseURL string

	// APIKey is the API key (cloud providers).
	APIKey string

	// Dimensions is the embedding vector size.
	Dimensions int

	// Timeout bounds a single embedding call.
	Timeout time.Duration
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama, or overrides).
	BaseURL string

	// APIKey is the API key (cloud providers).
	APIKey string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens bounds the completion length.
	MaxTokens int

	// InputCostPerMTok is the USD cost per million prompt tokens,
	// used for the estimated cost field.
	InputCostPerMTok float64

	// OutputCostPerMTok is the USD cost per million completion tokens.
	OutputCostPerMTok float64

	// Timeout bounds a single generation call.
	Timeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RerankSettings holds reranker configuration. An unconfigured reranker
// is not an error: the pipeline permanently degrades to retrieval order.
type RerankSettings struct {
	// Provider is the rerank service provider.
	Provider AIProvider

	// Model is the rerank model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key.
	APIKey string

	// Timeout bounds a single rerank call; on expiry the pipeline
	// falls back to retrieval order.
	Timeout time.Duration
}

// IsConfigured returns true if the reranker is set up.
func (r RerankSettings) IsConfigured() bool {
	if !r.Provider.IsValid() {
		return false
	}
	if r.Provider.RequiresAPIKey() && r.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds vector store configuration.
type VectorStoreSettings struct {
	// Backend selects the vector store implementation.
	Backend VectorBackend

	// Path is the SQLite database path (sqlite backend).
	Path string

	// URL is the Qdrant server URL (qdrant backend).
	URL string

	// APIKey is the Qdrant API key (qdrant backend, optional).
	APIKey string

	// Collection is the Qdrant collection name.
	Collection string

	// Timeout bounds a single store call.
	Timeout time.Duration
}

// CacheSettings holds the optional embedding cache configuration.
type CacheSettings struct {
	// Enabled turns the Redis embedding cache on.
	Enabled bool

	// Addr is the Redis address, host:port.
	Addr string

	// Password is the Redis password, may be empty.
	Password string

	// DB is the Redis database number.
	DB int

	// TTL is how long cached embeddings live.
	TTL time.Duration
}

// IngestSettings holds ingestion behaviour configuration.
type IngestSettings struct {
	// Concurrency bounds parallel embed+upsert workers per document.
	Concurrency int

	// BatchSize is the number of chunks embedded per provider call.
	BatchSize int

	// MaxFileBytes rejects larger source files.
	MaxFileBytes int64
}

// Validate checks ingest settings consistency.
func (i IngestSettings) Validate() error {
	if i.Concurrency <= 0 {
		return fmt.Errorf("%w: ingest concurrency must be positive, got %d", ErrInvalidConfig, i.Concurrency)
	}
	if i.BatchSize <= 0 {
		return fmt.Errorf("%w: ingest batch_size must be positive, got %d", ErrInvalidConfig, i.BatchSize)
	}
	return nil
}

// ServerSettings holds the HTTP API configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// AllowReset enables the destructive reset endpoint.
	AllowReset bool

	// AllowedOrigins configures CORS. Empty means allow all.
	AllowedOrigins []string
}

// GitHubSettings holds the GitHub document source configuration.
type GitHubSettings struct {
	// Token is a personal access token, empty for anonymous access.
	Token string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Pipeline holds query pipeline tuning.
	Pipeline PipelineSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds generation provider settings.
	LLM LLMSettings

	// Rerank holds reranker settings.
	Rerank RerankSettings

	// VectorStore holds vector store settings.
	VectorStore VectorStoreSettings

	// Cache holds embedding cache settings.
	Cache CacheSettings

	// Ingest holds ingestion settings.
	Ingest IngestSettings

	// Server holds HTTP API settings.
	Server ServerSettings

	// GitHub holds GitHub source settings.
	GitHub GitHubSettings
}

// Validate checks all settings for consistency. Invalid configuration
// is rejected here, never at request time.
func (s AppSettings) Validate() error {
	if err := s.Pipeline.Validate(); err != nil {
		return err
	}
	if err := s.Ingest.Validate(); err != nil {
		return err
	}
	if !s.VectorStore.Backend.IsValid() {
		return fmt.Errorf("%w: unknown vector backend %q", ErrInvalidConfig, s.VectorStore.Backend)
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm temperature must be in [0,2], got %v", ErrInvalidConfig, s.LLM.Temperature)
	}
	if s.LLM.MaxTokens <= 0 {
		return fmt.Errorf("%w: llm max_tokens must be positive, got %d", ErrInvalidConfig, s.LLM.MaxTokens)
	}
	return nil
}

// DefaultAppSettings returns settings with the documented defaults.
// Cloud providers are left unconfigured; users supply API keys via
// config or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Pipeline: PipelineSettings{
			ChunkSize:          1000,
			ChunkOverlap:       120,
			TopKRetrieval:      15,
			TopKRerank:         5,
			MinSimilarityScore: 0.5,
			MinRerankScore:     0.3,
			ChatHistoryTurns:   3,
			DisplayMinScore:    0.7,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderGemini,
			Model:      "text-embedding-004",
			Dimensions: 768,
			Timeout:    30 * time.Second,
		},
		LLM: LLMSettings{
			Provider:          AIProviderGemini,
			Model:             "gemini-1.5-flash",
			Temperature:       0.7,
			MaxTokens:         2048,
			InputCostPerMTok:  0.075,
			OutputCostPerMTok: 0.30,
			Timeout:           120 * time.Second,
		},
		Rerank: RerankSettings{
			Provider: AIProviderCohere,
			Model:    "rerank-english-v3.0",
			Timeout:  10 * time.Second,
		},
		VectorStore: VectorStoreSettings{
			Backend:    VectorBackendSQLite,
			Collection: "docent_chunks",
			Timeout:    30 * time.Second,
		},
		Cache: CacheSettings{
			Enabled: false,
			Addr:    "localhost:6379",
			TTL:     24 * time.Hour,
		},
		Ingest: IngestSettings{
			Concurrency:  4,
			BatchSize:    32,
			MaxFileBytes: 10 << 20,
		},
		Server: ServerSettings{
			Addr: "localhost:8080",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOpenAI,
		AIProviderOllama,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderAnthropic,
		AIProviderOllama,
	}
}

// AllRerankProviders returns providers that support reranking.
func AllRerankProviders() []AIProvider {
	return []AIProvider{
		AIProviderCohere,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini: "text-embedding-004",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderOllama: "nomic-embed-text",
	}
}

// DefaultLLMModels returns default models for each generation provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini:    "gemini-1.5-flash",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderOllama:    "llama3.2",
	}
}

// DefaultRerankModels returns default models for each rerank provider.
func DefaultRerankModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderCohere: "rerank-english-v3.0",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Gemini models
		"text-embedding-004": 768,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
	}
}
