package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove all documents, chunks, and vectors",
	Long: `Deletes the entire corpus. This cannot be undone.

Prompts for confirmation unless --force is given.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	if !resetForce {
		cmd.Print("This deletes every ingested document. Type 'yes' to continue: ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n') //nolint:errcheck
		if strings.TrimSpace(input) != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := adminService.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	cmd.Println("Corpus reset.")
	return nil
}
