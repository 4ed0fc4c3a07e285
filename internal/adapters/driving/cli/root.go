// Package cli implements the docent command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
)

// version is the build version, overridable via ldflags.
var version = "0.1.0"

// Services the commands talk to. Set once at startup via SetServices;
// commands check for nil so partially wired binaries fail politely.
var (
	queryService    driving.QueryService
	ingestService   driving.IngestService
	libraryService  driving.LibraryService
	adminService    driving.AdminService
	settingsService driving.SettingsService
)

// Services aggregates everything the CLI needs.
type Services struct {
	Query    driving.QueryService
	Ingest   driving.IngestService
	Library  driving.LibraryService
	Admin    driving.AdminService
	Settings driving.SettingsService
}

// SetServices wires the core services into the commands.
func SetServices(s Services) {
	queryService = s.Query
	ingestService = s.Ingest
	libraryService = s.Library
	adminService = s.Admin
	settingsService = s.Settings
}

var rootCmd = &cobra.Command{
	Use:   "docent",
	Short: "Ask questions about your documents",
	Long: `Docent ingests documents from the filesystem or GitHub and answers
questions about them with cited sources, using retrieval-augmented
generation against your configured AI providers.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
