package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check AI provider and vector store health",
	Long:  `Pings every configured component and reports per-component status.`,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	status, err := adminService.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	for _, c := range status.Components {
		state := "ok"
		switch {
		case !c.Configured:
			state = "not configured"
		case !c.Healthy:
			state = "UNHEALTHY"
		}
		cmd.Printf("  %-12s %s\n", c.Name, state)
		if c.Detail != "" {
			cmd.Printf("               %s\n", c.Detail)
		}
	}

	cmd.Printf("\nOverall: %s\n", status.Status)
	if status.Status != "ok" {
		return errors.New("one or more components are unhealthy")
	}
	return nil
}
