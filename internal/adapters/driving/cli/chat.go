package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/adapters/driving/tui"
	"github.com/custodia-labs/docent/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Launch the interactive terminal chat. Each question is answered from
the ingested documents with cited sources; recent turns are sent along
as conversation context.

Controls:
  Enter      - Send question
  Ctrl+S     - Toggle source details
  PgUp/PgDn  - Scroll the conversation
  Ctrl+C     - Quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	// Panic recovery so terminal state and a stack trace survive a crash
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	opts := tui.Options{
		HistoryTurns:    domain.DefaultAppSettings().Pipeline.ChatHistoryTurns,
		DisplayMinScore: domain.DefaultAppSettings().Pipeline.DisplayMinScore,
	}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			opts.HistoryTurns = settings.Pipeline.ChatHistoryTurns
			opts.DisplayMinScore = settings.Pipeline.DisplayMinScore
		}
	}

	app, err := tui.NewApp(&tui.Ports{Query: queryService}, opts)
	if err != nil {
		return fmt.Errorf("failed to create chat UI: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}

	return nil
}
