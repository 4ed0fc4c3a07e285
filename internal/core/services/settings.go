package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize        = "pipeline.chunk_size"
	keyChunkOverlap     = "pipeline.chunk_overlap"
	keyTopKRetrieval    = "pipeline.top_k_retrieval"
	keyTopKRerank       = "pipeline.top_k_rerank"
	keyMinSimilarity    = "pipeline.min_similarity_score"
	keyMinRerankScore   = "pipeline.min_rerank_score"
	keyChatHistoryTurns = "pipeline.chat_history_turns"
	keyDisplayMinScore  = "pipeline.display_min_score"

	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyEmbedDims     = "embedding.dimensions"
	keyEmbedTimeout  = "embedding.timeout"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"
	keyLLMMaxTokens   = "llm.max_tokens"
	keyLLMInputCost   = "llm.input_cost_per_mtok"
	keyLLMOutputCost  = "llm.output_cost_per_mtok"
	keyLLMTimeout     = "llm.timeout"

	keyRerankProvider = "rerank.provider"
	keyRerankModel    = "rerank.model"
	keyRerankBaseURL  = "rerank.base_url"
	keyRerankAPIKey   = "rerank.api_key"
	keyRerankTimeout  = "rerank.timeout"

	keyVectorBackend    = "vector_store.backend"
	keyVectorPath       = "vector_store.path"
	keyVectorURL        = "vector_store.url"
	keyVectorAPIKey     = "vector_store.api_key"
	keyVectorCollection = "vector_store.collection"
	keyVectorTimeout    = "vector_store.timeout"

	keyCacheEnabled = "cache.enabled"
	keyCacheAddr    = "cache.addr"
	keyCachePass    = "cache.password"
	keyCacheDB      = "cache.db"
	keyCacheTTL     = "cache.ttl"

	keyIngestConcurrency  = "ingest.concurrency"
	keyIngestBatchSize    = "ingest.batch_size"
	keyIngestMaxFileBytes = "ingest.max_file_bytes"

	keyServerAddr       = "server.addr"
	keyServerAllowReset = "server.allow_reset"
	keyServerOrigins    = "server.allowed_origins"

	keyGitHubToken = "github.token"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings, layering stored values
// over the documented defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Pipeline: domain.PipelineSettings{
			ChunkSize:          s.getInt(keyChunkSize, defaults.Pipeline.ChunkSize),
			ChunkOverlap:       s.getInt(keyChunkOverlap, defaults.Pipeline.ChunkOverlap),
			TopKRetrieval:      s.getInt(keyTopKRetrieval, defaults.Pipeline.TopKRetrieval),
			TopKRerank:         s.getInt(keyTopKRerank, defaults.Pipeline.TopKRerank),
			MinSimilarityScore: s.getFloat(keyMinSimilarity, defaults.Pipeline.MinSimilarityScore),
			MinRerankScore:     s.getFloat(keyMinRerankScore, defaults.Pipeline.MinRerankScore),
			ChatHistoryTurns:   s.getIntAllowZero(keyChatHistoryTurns, defaults.Pipeline.ChatHistoryTurns),
			DisplayMinScore:    s.getFloat(keyDisplayMinScore, defaults.Pipeline.DisplayMinScore),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, defaults.Embedding.Dimensions),
			Timeout:    s.getDuration(keyEmbedTimeout, defaults.Embedding.Timeout),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:             s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			Temperature:       s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:         s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
			InputCostPerMTok:  s.getFloat(keyLLMInputCost, defaults.LLM.InputCostPerMTok),
			OutputCostPerMTok: s.getFloat(keyLLMOutputCost, defaults.LLM.OutputCostPerMTok),
			Timeout:           s.getDuration(keyLLMTimeout, defaults.LLM.Timeout),
		},
		Rerank: domain.RerankSettings{
			Provider: s.getProvider(keyRerankProvider, defaults.Rerank.Provider),
			Model:    s.getString(keyRerankModel, defaults.Rerank.Model),
			BaseURL:  s.configStore.GetString(keyRerankBaseURL),
			APIKey:   s.configStore.GetString(keyRerankAPIKey),
			Timeout:  s.getDuration(keyRerankTimeout, defaults.Rerank.Timeout),
		},
		VectorStore: domain.VectorStoreSettings{
			Backend:    s.getBackend(keyVectorBackend, defaults.VectorStore.Backend),
			Path:       s.configStore.GetString(keyVectorPath),
			URL:        s.configStore.GetString(keyVectorURL),
			APIKey:     s.configStore.GetString(keyVectorAPIKey),
			Collection: s.getString(keyVectorCollection, defaults.VectorStore.Collection),
			Timeout:    s.getDuration(keyVectorTimeout, defaults.VectorStore.Timeout),
		},
		Cache: domain.CacheSettings{
			Enabled:  s.getBool(keyCacheEnabled, defaults.Cache.Enabled),
			Addr:     s.getString(keyCacheAddr, defaults.Cache.Addr),
			Password: s.configStore.GetString(keyCachePass),
			DB:       s.getIntAllowZero(keyCacheDB, defaults.Cache.DB),
			TTL:      s.getDuration(keyCacheTTL, defaults.Cache.TTL),
		},
		Ingest: domain.IngestSettings{
			Concurrency:  s.getInt(keyIngestConcurrency, defaults.Ingest.Concurrency),
			BatchSize:    s.getInt(keyIngestBatchSize, defaults.Ingest.BatchSize),
			MaxFileBytes: int64(s.getInt(keyIngestMaxFileBytes, int(defaults.Ingest.MaxFileBytes))),
		},
		Server: domain.ServerSettings{
			Addr:           s.getString(keyServerAddr, defaults.Server.Addr),
			AllowReset:     s.getBool(keyServerAllowReset, defaults.Server.AllowReset),
			AllowedOrigins: s.configStore.GetStringSlice(keyServerOrigins),
		},
		GitHub: domain.GitHubSettings{
			Token: s.configStore.GetString(keyGitHubToken),
		},
	}

	return settings, nil
}

// Save persists application settings. API keys are only written when
// non-empty so a partial save never wipes stored credentials.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	type entry struct {
		key   string
		value any
	}

	entries := []entry{
		{keyChunkSize, settings.Pipeline.ChunkSize},
		{keyChunkOverlap, settings.Pipeline.ChunkOverlap},
		{keyTopKRetrieval, settings.Pipeline.TopKRetrieval},
		{keyTopKRerank, settings.Pipeline.TopKRerank},
		{keyMinSimilarity, settings.Pipeline.MinSimilarityScore},
		{keyMinRerankScore, settings.Pipeline.MinRerankScore},
		{keyChatHistoryTurns, settings.Pipeline.ChatHistoryTurns},
		{keyDisplayMinScore, settings.Pipeline.DisplayMinScore},

		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedTimeout, settings.Embedding.Timeout.String()},

		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyLLMInputCost, settings.LLM.InputCostPerMTok},
		{keyLLMOutputCost, settings.LLM.OutputCostPerMTok},
		{keyLLMTimeout, settings.LLM.Timeout.String()},

		{keyRerankProvider, settings.Rerank.Provider.String()},
		{keyRerankModel, settings.Rerank.Model},
		{keyRerankBaseURL, settings.Rerank.BaseURL},
		{keyRerankTimeout, settings.Rerank.Timeout.String()},

		{keyVectorBackend, settings.VectorStore.Backend.String()},
		{keyVectorPath, settings.VectorStore.Path},
		{keyVectorURL, settings.VectorStore.URL},
		{keyVectorCollection, settings.VectorStore.Collection},
		{keyVectorTimeout, settings.VectorStore.Timeout.String()},

		{keyCacheEnabled, settings.Cache.Enabled},
		{keyCacheAddr, settings.Cache.Addr},
		{keyCacheDB, settings.Cache.DB},
		{keyCacheTTL, settings.Cache.TTL.String()},

		{keyIngestConcurrency, settings.Ingest.Concurrency},
		{keyIngestBatchSize, settings.Ingest.BatchSize},
		{keyIngestMaxFileBytes, int(settings.Ingest.MaxFileBytes)},

		{keyServerAddr, settings.Server.Addr},
		{keyServerAllowReset, settings.Server.AllowReset},
	}

	if settings.Embedding.APIKey != "" {
		entries = append(entries, entry{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		entries = append(entries, entry{keyLLMAPIKey, settings.LLM.APIKey})
	}
	if settings.Rerank.APIKey != "" {
		entries = append(entries, entry{keyRerankAPIKey, settings.Rerank.APIKey})
	}
	if settings.VectorStore.APIKey != "" {
		entries = append(entries, entry{keyVectorAPIKey, settings.VectorStore.APIKey})
	}
	if settings.Cache.Password != "" {
		entries = append(entries, entry{keyCachePass, settings.Cache.Password})
	}
	if settings.GitHub.Token != "" {
		entries = append(entries, entry{keyGitHubToken, settings.GitHub.Token})
	}
	if len(settings.Server.AllowedOrigins) > 0 {
		entries = append(entries, entry{keyServerOrigins, settings.Server.AllowedOrigins})
	}

	for _, e := range entries {
		if err := s.configStore.Set(e.key, e.value); err != nil {
			return fmt.Errorf("save %s: %w", e.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidConfig, provider)
	}
	if !providerIn(provider, domain.AllEmbeddingProviders()) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidConfig, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidConfig, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Use the provided model or the provider default
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	// Local providers need a base URL; cloud providers use theirs
	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// Keep the stored dimensions in step with the model
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidConfig, provider)
	}
	if !providerIn(provider, domain.AllLLMProviders()) {
		return fmt.Errorf("%w: provider %s does not support generation", domain.ErrInvalidConfig, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidConfig, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetRerankProvider configures the rerank provider.
func (s *SettingsService) SetRerankProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid rerank provider: %s", domain.ErrInvalidConfig, provider)
	}
	if !providerIn(provider, domain.AllRerankProviders()) {
		return fmt.Errorf("%w: provider %s does not support reranking", domain.ErrInvalidConfig, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidConfig, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Rerank.Provider = provider

	if model != "" {
		settings.Rerank.Model = model
	} else if defaultModel, ok := domain.DefaultRerankModels()[provider]; ok {
		settings.Rerank.Model = defaultModel
	}

	settings.Rerank.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks if current settings are internally consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// ValidateRerankConfig validates the current rerank configuration by pinging the provider.
func (s *SettingsService) ValidateRerankConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateRerank(&settings.Rerank)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero treats a stored zero as a real value, not an absence.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat64(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(key string, defaultVal domain.VectorBackend) domain.VectorBackend {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	backend := domain.VectorBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func providerIn(provider domain.AIProvider, set []domain.AIProvider) bool {
	for _, p := range set {
		if p == provider {
			return true
		}
	}
	return false
}
