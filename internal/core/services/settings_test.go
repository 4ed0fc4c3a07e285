package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docent/internal/core/domain"
)

// --- Mock implementations ---

type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	rerankErr    error

	embeddingConfigs []*domain.EmbeddingSettings
}

func (m *mockAIValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	m.embeddingConfigs = append(m.embeddingConfigs, config)
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(config *domain.LLMSettings) error {
	return m.llmErr
}

func (m *mockAIValidator) ValidateRerank(config *domain.RerankSettings) error {
	return m.rerankErr
}

// --- Tests ---

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Pipeline.ChunkSize, settings.Pipeline.ChunkSize)
	assert.Equal(t, defaults.Pipeline.TopKRetrieval, settings.Pipeline.TopKRetrieval)
	assert.Equal(t, defaults.Pipeline.DisplayMinScore, settings.Pipeline.DisplayMinScore)
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Embedding.Model, settings.Embedding.Model)
	assert.Equal(t, defaults.Embedding.Timeout, settings.Embedding.Timeout)
	assert.Equal(t, defaults.LLM.Provider, settings.LLM.Provider)
	assert.Equal(t, defaults.LLM.Model, settings.LLM.Model)
	assert.Equal(t, defaults.VectorStore.Backend, settings.VectorStore.Backend)
	assert.Equal(t, defaults.Cache.Addr, settings.Cache.Addr)
	assert.Equal(t, defaults.Ingest.MaxFileBytes, settings.Ingest.MaxFileBytes)
	assert.Equal(t, defaults.Server.Addr, settings.Server.Addr)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("pipeline.chunk_size", 512)
	_ = store.Set("pipeline.min_similarity_score", 0.42)
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("embedding.timeout", "45s")
	_ = store.Set("vector_store.backend", "qdrant")
	_ = store.Set("cache.enabled", true)

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, 512, settings.Pipeline.ChunkSize)
	assert.InDelta(t, 0.42, settings.Pipeline.MinSimilarityScore, 1e-9)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, 45*time.Second, settings.Embedding.Timeout)
	assert.Equal(t, domain.VectorBackendQdrant, settings.VectorStore.Backend)
	assert.True(t, settings.Cache.Enabled)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("vector_store.backend", "invalid_backend")
	_ = store.Set("llm.timeout", "not a duration")

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.VectorStore.Backend, settings.VectorStore.Backend)
	assert.Equal(t, defaults.LLM.Timeout, settings.LLM.Timeout)
}

func TestSettingsService_Get_StoredZeroIsRespected(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("pipeline.chat_history_turns", 0)
	_ = store.Set("cache.db", 0)

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	// Zero is a real value for these keys, not an absence.
	assert.Equal(t, 0, settings.Pipeline.ChatHistoryTurns)
	assert.Equal(t, 0, settings.Cache.DB)
}

func TestSettingsService_Save_RoundTrips(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Pipeline.ChunkSize = 800
	settings.Pipeline.TopKRerank = 8
	settings.Embedding.Provider = domain.AIProviderOpenAI
	settings.Embedding.Model = "text-embedding-3-small"
	settings.Embedding.APIKey = "sk-test-key"
	settings.Embedding.Timeout = 20 * time.Second
	settings.LLM.Provider = domain.AIProviderAnthropic
	settings.LLM.Model = "claude-3-5-sonnet-latest"
	settings.LLM.APIKey = "sk-ant-test"
	settings.Rerank.APIKey = "co-test"
	settings.Cache.Enabled = true
	settings.Cache.TTL = time.Hour
	settings.GitHub.Token = "ghp_test"
	settings.Server.AllowedOrigins = []string{"https://app.example.com"}

	err := service.Save(&settings)
	require.NoError(t, err)

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 800, retrieved.Pipeline.ChunkSize)
	assert.Equal(t, 8, retrieved.Pipeline.TopKRerank)
	assert.Equal(t, domain.AIProviderOpenAI, retrieved.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", retrieved.Embedding.Model)
	assert.Equal(t, "sk-test-key", retrieved.Embedding.APIKey)
	assert.Equal(t, 20*time.Second, retrieved.Embedding.Timeout)
	assert.Equal(t, domain.AIProviderAnthropic, retrieved.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", retrieved.LLM.Model)
	assert.Equal(t, "sk-ant-test", retrieved.LLM.APIKey)
	assert.Equal(t, "co-test", retrieved.Rerank.APIKey)
	assert.True(t, retrieved.Cache.Enabled)
	assert.Equal(t, time.Hour, retrieved.Cache.TTL)
	assert.Equal(t, "ghp_test", retrieved.GitHub.Token)
	assert.Equal(t, []string{"https://app.example.com"}, retrieved.Server.AllowedOrigins)
}

func TestSettingsService_Save_RejectsInvalidSettings(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Pipeline.ChunkOverlap = settings.Pipeline.ChunkSize + 1

	err := service.Save(&settings)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	// Nothing was written.
	_, exists := store.Get("pipeline.chunk_size")
	assert.False(t, exists)
}

func TestSettingsService_Save_EmptyAPIKeyPreservesStored(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Embedding.APIKey = "sk-original"
	require.NoError(t, service.Save(&settings))

	// Saving without a key must not wipe the stored one.
	settings.Embedding.APIKey = ""
	require.NoError(t, service.Save(&settings))

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-original", retrieved.Embedding.APIKey)
}

func TestSettingsService_SetEmbeddingProvider_Ollama(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	err := service.SetEmbeddingProvider(domain.AIProviderOllama, "nomic-embed-text", "")

	require.NoError(t, err)

	settings, _ := service.Get()
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	assert.Empty(t, settings.Embedding.APIKey)
}

func TestSettingsService_SetEmbeddingProvider_OpenAI(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	err := service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-small", "sk-test-key")

	require.NoError(t, err)

	settings, _ := service.Get()
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, "sk-test-key", settings.Embedding.APIKey)
	assert.Empty(t, settings.Embedding.BaseURL)
}

func TestSettingsService_SetEmbeddingProvider_DefaultModel(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	err := service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "sk-test-key")

	require.NoError(t, err)

	settings, _ := service.Get()
	defaults := domain.DefaultEmbeddingModels()
	assert.Equal(t, defaults[domain.AIProviderOpenAI], settings.Embedding.Model)
}

func TestSettingsService_SetEmbeddingProvider_UpdatesDimensions(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	err := service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-small", "sk-test-key")

	require.NoError(t, err)

	settings, _ := service.Get()
	assert.Equal(t, 1536, settings.Embedding.Dimensions)
}

func TestSettingsService_SetEmbeddingProvider_RequiresAPIKey(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	err := service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-small", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "API key required")
}

func TestSettingsService_SetEmbeddingProvider_Invalid(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	err := service.SetEmbeddingProvider(domain.AIProvider("bogus"), "", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSettingsService_SetEmbeddingProvider_AnthropicRejected(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	// Anthropic has no embedding API.
	err := service.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "sk-ant-test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support embeddings")
}

func TestSettingsService_SetLLMProvider_Anthropic(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	err := service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant-test")

	require.NoError(t, err)

	settings, _ := service.Get()
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderAnthropic], settings.LLM.Model)
	assert.Equal(t, "sk-ant-test", settings.LLM.APIKey)
}

func TestSettingsService_SetLLMProvider_OllamaSetsBaseURL(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	err := service.SetLLMProvider(domain.AIProviderOllama, "llama3.2", "")

	require.NoError(t, err)

	settings, _ := service.Get()
	assert.Equal(t, "http://localhost:11434", settings.LLM.BaseURL)
}

func TestSettingsService_SetLLMProvider_CohereRejected(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	err := service.SetLLMProvider(domain.AIProviderCohere, "", "co-test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support generation")
}

func TestSettingsService_SetRerankProvider_Cohere(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	err := service.SetRerankProvider(domain.AIProviderCohere, "", "co-test")

	require.NoError(t, err)

	settings, _ := service.Get()
	assert.Equal(t, domain.AIProviderCohere, settings.Rerank.Provider)
	assert.Equal(t, "rerank-english-v3.0", settings.Rerank.Model)
	assert.Equal(t, "co-test", settings.Rerank.APIKey)
	assert.True(t, settings.Rerank.IsConfigured())
}

func TestSettingsService_SetRerankProvider_OllamaRejected(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	err := service.SetRerankProvider(domain.AIProviderOllama, "", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support reranking")
}

func TestSettingsService_Validate(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.temperature", 3.5)

	service := NewSettingsService(store, nil)

	err := service.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSettingsService_GetDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("pipeline.chunk_size", 123)

	service := NewSettingsService(store, nil)

	defaults := service.GetDefaults()

	// Defaults ignore stored overrides.
	assert.Equal(t, domain.DefaultAppSettings().Pipeline.ChunkSize, defaults.Pipeline.ChunkSize)
}

func TestSettingsService_ValidateEmbeddingConfig(t *testing.T) {
	store := memory.NewConfigStore()
	validator := &mockAIValidator{}
	service := NewSettingsService(store, validator)

	err := service.ValidateEmbeddingConfig()

	require.NoError(t, err)
	require.Len(t, validator.embeddingConfigs, 1)
	assert.Equal(t, domain.DefaultAppSettings().Embedding.Model, validator.embeddingConfigs[0].Model)
}

func TestSettingsService_ValidateEmbeddingConfig_Error(t *testing.T) {
	store := memory.NewConfigStore()
	validator := &mockAIValidator{embeddingErr: errors.New("ping failed")}
	service := NewSettingsService(store, validator)

	err := service.ValidateEmbeddingConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping failed")
}

func TestSettingsService_ValidateLLMConfig_NilValidator(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	assert.NoError(t, service.ValidateLLMConfig())
	assert.NoError(t, service.ValidateRerankConfig())
}
