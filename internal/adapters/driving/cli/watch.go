package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-ingest documents as they change on disk",
	Long: `Watches a directory and re-ingests documents when they are created
or modified, and removes them from the index when they are deleted.
Runs until interrupted. Only filesystem targets support watching.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s, press Ctrl+C to stop.\n", args[0])
	if err := ingestService.Watch(ctx, args[0]); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
