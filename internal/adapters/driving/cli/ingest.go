package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [target]",
	Short: "Ingest documents from a path or GitHub repository",
	Long: `Fetches documents from the target, normalises them, and indexes
them for retrieval. The target is a file, a directory, or a GitHub
repository URL such as https://github.com/owner/repo.

Re-ingesting a document replaces the previous version.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	target := args[0]
	cmd.Printf("Ingesting %s...\n\n", target)

	results, err := ingestService.Ingest(cmd.Context(), target)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	var ok, failed int
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			failed++
			cmd.Printf("  FAIL %s: %v\n", r.URI, r.Err)
			continue
		}
		ok++
		verb := "indexed"
		if r.Replaced {
			verb = "replaced"
		}
		cmd.Printf("  %s %s (%d chunks, %d tokens, %s)\n",
			verb, r.Title, r.Chunks, r.Tokens, r.Duration.Round(time.Millisecond))
	}

	cmd.Printf("\nDone: %d ingested, %d failed.\n", ok, failed)
	if failed > 0 && ok == 0 {
		return errors.New("all documents failed to ingest")
	}
	return nil
}
