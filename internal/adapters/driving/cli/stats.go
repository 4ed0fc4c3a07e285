package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	stats, err := libraryService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Println("Corpus")
	cmd.Printf("  Documents: %d\n", stats.Documents)
	cmd.Printf("  Chunks:    %d\n", stats.Chunks)
	cmd.Printf("  Vectors:   %d\n", stats.Vectors)
	cmd.Println()
	cmd.Println("Models")
	cmd.Printf("  Embedding: %s\n", stats.EmbeddingModel)
	cmd.Printf("  LLM:       %s\n", stats.LLMModel)
	if stats.RerankModel != "" {
		cmd.Printf("  Rerank:    %s\n", stats.RerankModel)
	} else {
		cmd.Printf("  Rerank:    (not configured)\n")
	}

	return nil
}
