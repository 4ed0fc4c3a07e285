// Command docent is the document Q&A engine CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docent/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/docent/internal/adapters/driven/config/file"
	fssource "github.com/custodia-labs/docent/internal/adapters/driven/source/fs"
	ghsource "github.com/custodia-labs/docent/internal/adapters/driven/source/github"
	"github.com/custodia-labs/docent/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docent/internal/adapters/driving/cli"
	"github.com/custodia-labs/docent/internal/chunker"
	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/services"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/normalisers"
)

func main() {
	// Optional .env for API keys during development.
	_ = godotenv.Load() //nolint:errcheck

	wired, err := buildServices(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "docent: %v\n", err)
		os.Exit(1)
	}

	cli.SetServices(wired)
	cli.Execute()
}

// buildServices wires adapters into core services. AI providers that are
// unconfigured or unreachable leave the dependent services nil; the
// commands report that instead of failing at startup.
func buildServices(ctx context.Context) (cli.Services, error) {
	configStore, err := configfile.NewConfigStore("")
	if err != nil {
		return cli.Services{}, fmt.Errorf("opening config store: %w", err)
	}
	promptStore, err := configfile.NewPromptStore("")
	if err != nil {
		return cli.Services{}, fmt.Errorf("opening prompt store: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return cli.Services{}, fmt.Errorf("loading settings: %w", err)
	}

	docStore, err := sqlite.NewStore("")
	if err != nil {
		return cli.Services{}, fmt.Errorf("opening document store: %w", err)
	}

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		logger.Warn("embedding provider unavailable: %v", err)
		embedder = nil
	}
	if embedder != nil {
		embedder, err = ai.CreateEmbeddingCacheWrapper(ctx, embedder, &settings.Cache)
		if err != nil {
			logger.Warn("embedding cache disabled: %v", err)
		}
	}

	llm, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		logger.Warn("llm provider unavailable: %v", err)
		llm = nil
	}

	reranker, err := ai.CreateReranker(&settings.Rerank)
	if err != nil {
		logger.Warn("reranker unavailable, queries will use retrieval order: %v", err)
		reranker = nil
	}

	vectors, err := ai.CreateVectorStore(ctx, &settings.VectorStore, settings.Embedding.Dimensions)
	if err != nil {
		return cli.Services{}, fmt.Errorf("opening vector store: %w", err)
	}

	registry := normalisers.NewRegistry()
	normalisers.RegisterDefaults(registry)

	chk, err := chunker.New(
		chunker.WithChunkSize(settings.Pipeline.ChunkSize),
		chunker.WithOverlap(settings.Pipeline.ChunkOverlap),
	)
	if err != nil {
		return cli.Services{}, fmt.Errorf("creating chunker: %w", err)
	}

	prompts := services.NewPromptBuilder()
	prompts.SetPromptStore(promptStore)

	libraryService := services.NewLibraryService(docStore, vectors, *settings)
	adminService := services.NewAdminService(embedder, vectors, reranker, llm, docStore, *settings)

	wired := cli.Services{
		Library:  libraryService,
		Admin:    adminService,
		Settings: settingsService,
	}

	if embedder != nil {
		wired.Ingest = services.NewIngestOrchestrator(
			sourceResolver(ctx, settings),
			registry, chk, embedder, vectors, docStore, *settings,
		)
	}
	if embedder != nil && llm != nil {
		wired.Query = services.NewQueryPipeline(
			embedder, vectors, docStore, reranker, llm, prompts, *settings,
		)
	}

	return wired, nil
}

// sourceResolver maps ingest targets onto document sources: GitHub
// repository URLs become the GitHub source, everything else is treated
// as a filesystem path.
func sourceResolver(ctx context.Context, settings *domain.AppSettings) services.SourceResolver {
	return func(target string) (driven.DocumentSource, error) {
		if owner, repo, branch, ok := parseGitHubTarget(target); ok {
			token := settings.GitHub.Token
			if token == "" {
				token = os.Getenv("GITHUB_TOKEN")
			}
			return ghsource.New(ctx, ghsource.Config{
				Owner:        owner,
				Repo:         repo,
				Branch:       branch,
				Token:        token,
				MaxFileBytes: settings.Ingest.MaxFileBytes,
			}), nil
		}
		return fssource.New(target, settings.Ingest.MaxFileBytes), nil
	}
}

// parseGitHubTarget recognises GitHub repository URLs in the forms
// https://github.com/owner/repo, github.com/owner/repo, and
// github://owner/repo, with an optional /tree/branch suffix.
func parseGitHubTarget(target string) (owner, repo, branch string, ok bool) {
	rest := ""
	switch {
	case strings.HasPrefix(target, "https://github.com/"):
		rest = strings.TrimPrefix(target, "https://github.com/")
	case strings.HasPrefix(target, "github.com/"):
		rest = strings.TrimPrefix(target, "github.com/")
	case strings.HasPrefix(target, "github://"):
		rest = strings.TrimPrefix(target, "github://")
	default:
		return "", "", "", false
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	owner = parts[0]
	repo = strings.TrimSuffix(parts[1], ".git")
	if len(parts) >= 4 && parts[2] == "tree" {
		branch = parts[3]
	}
	return owner, repo, branch, true
}
