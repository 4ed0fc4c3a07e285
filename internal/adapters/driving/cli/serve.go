package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/adapters/driving/rest"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the HTTP API exposing chat, document management, health,
stats, and Prometheus metrics. The OpenAPI document is served at
/apidocs.json.

The destructive /reset route is only registered when enabled in the
server settings.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	cfg := rest.Config{
		Addr:            settings.Server.Addr,
		AllowReset:      settings.Server.AllowReset,
		AllowedOrigins:  settings.Server.AllowedOrigins,
		MaxUploadBytes:  settings.Ingest.MaxFileBytes,
		DisplayMinScore: settings.Pipeline.DisplayMinScore,
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	server, err := rest.NewServer(cfg, &rest.Ports{
		Query:   queryService,
		Ingest:  ingestService,
		Library: libraryService,
		Admin:   adminService,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("API server listening on http://%s\n", cfg.Addr)
	return server.Serve(ctx)
}
