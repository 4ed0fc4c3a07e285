// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docent/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/docent/internal/adapters/driven/embedding/cached"
	geminiembed "github.com/custodia-labs/docent/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/docent/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docent/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docent/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/docent/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/docent/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/docent/internal/adapters/driven/rerank/cohere"
	memoryvec "github.com/custodia-labs/docent/internal/adapters/driven/vectorstore/memory"
	qdrantvec "github.com/custodia-labs/docent/internal/adapters/driven/vectorstore/qdrant"
	sqlitevec "github.com/custodia-labs/docent/internal/adapters/driven/vectorstore/sqlite"
	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docent settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docent settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docent settings' to fix",
			domain.ErrGenerationUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docent settings' to fix",
			domain.ErrGenerationUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// Intended for settings commands that validate credentials on configuration.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateRerankConfig validates a rerank configuration by creating a reranker and pinging it.
func ValidateRerankConfig(settings *domain.RerankSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateReranker(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(geminiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			Timeout:    settings.Timeout,
		})

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			Timeout:    settings.Timeout,
		})

	case domain.AIProviderOllama:
		dimensions := settings.Dimensions
		if dimensions == 0 {
			dimensions = domain.EmbeddingDimensions()[settings.Model]
		}
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
			Timeout:    settings.Timeout,
		}), nil

	case domain.AIProviderAnthropic, domain.AIProviderCohere:
		return nil, fmt.Errorf("%s does not support embeddings, use gemini, openai or ollama", settings.Provider)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return geminillm.NewLLMService(geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		}), nil

	case domain.AIProviderOpenAI, domain.AIProviderCohere:
		return nil, fmt.Errorf("%s does not support generation, use gemini, anthropic or ollama", settings.Provider)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateReranker creates the appropriate reranker based on settings.
// Returns nil if the reranker is not configured; an absent reranker is
// not an error, the pipeline degrades to retrieval order.
func CreateReranker(settings *domain.RerankSettings) (driven.Reranker, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderCohere:
		return cohere.NewReranker(cohere.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported rerank provider: %s", settings.Provider)
	}
}

// CreateVectorStore creates the configured vector store backend.
// Dimensions must match the embedding service; the qdrant backend needs
// it to create the collection.
func CreateVectorStore(ctx context.Context, settings *domain.VectorStoreSettings, dimensions int) (driven.VectorStore, error) {
	if settings == nil {
		return memoryvec.NewStore(), nil
	}

	switch settings.Backend {
	case domain.VectorBackendMemory, "":
		return memoryvec.NewStore(), nil

	case domain.VectorBackendSQLite:
		return sqlitevec.NewStore(settings.Path)

	case domain.VectorBackendQdrant:
		return qdrantvec.NewStore(ctx, qdrantvec.Config{
			URL:        settings.URL,
			APIKey:     settings.APIKey,
			Collection: settings.Collection,
			Dimensions: dimensions,
			Timeout:    settings.Timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported vector store backend: %s", settings.Backend)
	}
}

// CreateEmbeddingCacheWrapper wraps an embedding service with the Redis
// cache when caching is enabled. Returns the inner service unchanged when
// the cache is disabled or unreachable; a missing cache never blocks startup.
func CreateEmbeddingCacheWrapper(ctx context.Context, svc driven.EmbeddingService, settings *domain.CacheSettings) (driven.EmbeddingService, error) {
	if svc == nil || settings == nil || !settings.Enabled {
		return svc, nil
	}

	cache, err := redis.NewCache(ctx, redis.Config{
		Addr:     settings.Addr,
		Password: settings.Password,
		DB:       settings.DB,
		TTL:      settings.TTL,
	})
	if err != nil {
		return svc, fmt.Errorf("embedding cache unavailable: %w", err)
	}

	return cached.Wrap(svc, cache), nil
}
