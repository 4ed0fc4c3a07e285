package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docent/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, the vector store, and pipeline
options. Use subcommands to configure specific providers.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the generation provider",
	RunE:  runSettingsLLM,
}

var settingsRerankCmd = &cobra.Command{
	Use:   "rerank",
	Short: "Configure the rerank provider",
	Long: `Configure the reranker. Reranking is optional: without it, queries
use raw retrieval order and answers are marked degraded.`,
	RunE: runSettingsRerank,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsRerankCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	printProvider(cmd, "Embedding", settings.Embedding.Provider,
		settings.Embedding.Model, settings.Embedding.BaseURL,
		settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	cmd.Println()

	printProvider(cmd, "LLM", settings.LLM.Provider,
		settings.LLM.Model, settings.LLM.BaseURL,
		settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Println()

	printProvider(cmd, "Rerank", settings.Rerank.Provider,
		settings.Rerank.Model, settings.Rerank.BaseURL,
		settings.Rerank.APIKey, settings.Rerank.IsConfigured())
	cmd.Println()

	cmd.Println("[Vector Store]")
	cmd.Printf("  Backend: %s\n", settings.VectorStore.Backend)
	if settings.VectorStore.Backend == domain.VectorBackendQdrant {
		cmd.Printf("  URL: %s\n", settings.VectorStore.URL)
		cmd.Printf("  Collection: %s\n", settings.VectorStore.Collection)
	}
	cmd.Println()

	cmd.Println("[Pipeline]")
	cmd.Printf("  Chunk size: %d tokens (overlap %d)\n",
		settings.Pipeline.ChunkSize, settings.Pipeline.ChunkOverlap)
	cmd.Printf("  Retrieval depth: %d, rerank keep: %d\n",
		settings.Pipeline.TopKRetrieval, settings.Pipeline.TopKRerank)
	cmd.Printf("  Chat history: %d turns\n", settings.Pipeline.ChatHistoryTurns)
	cmd.Println()

	cmd.Println("[Cache]")
	if settings.Cache.Enabled {
		cmd.Printf("  Redis: %s (TTL %s)\n", settings.Cache.Addr, settings.Cache.TTL)
	} else {
		cmd.Println("  Disabled")
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docent settings embedding' or 'docent settings llm' to fix.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, label string, provider domain.AIProvider,
	model, baseURL, apiKey string, configured bool) {
	cmd.Printf("[%s]\n", label)
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureProvider(cmd, reader, providerFlow{
		label:     "Embedding",
		providers: domain.AllEmbeddingProviders(),
		defaults:  domain.DefaultEmbeddingModels(),
		set:       settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	})
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureProvider(cmd, reader, providerFlow{
		label:     "LLM",
		providers: domain.AllLLMProviders(),
		defaults:  domain.DefaultLLMModels(),
		set:       settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	})
}

func runSettingsRerank(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureProvider(cmd, reader, providerFlow{
		label:     "Rerank",
		providers: domain.AllRerankProviders(),
		defaults:  domain.DefaultRerankModels(),
		set:       settingsService.SetRerankProvider,
		validate:  settingsService.ValidateRerankConfig,
	})
}

// providerFlow parameterises one interactive provider configuration.
type providerFlow struct {
	label     string
	providers []domain.AIProvider
	defaults  map[domain.AIProvider]string
	set       func(domain.AIProvider, string, string) error
	validate  func() error
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, flow providerFlow) error {
	cmd.Printf("Select %s Provider\n", flow.label)
	for i, p := range flow.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(flow.providers), 1)
	selected := flow.providers[idx-1]

	defaultModel := flow.defaults[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := flow.set(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", strings.ToLower(flow.label), err)
	}

	cmd.Print("Validating configuration... ")
	if err := flow.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", strings.ToLower(flow.label), err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", flow.label, selected.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
