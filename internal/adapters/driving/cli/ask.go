package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/core/domain"
)

var (
	askJSON    bool
	askSession string
	askAll     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the ingested documents",
	Long: `Runs the full retrieval pipeline for one question and prints the
answer with its cited sources. When nothing relevant is found in the
corpus, a general knowledge answer is printed and labelled as such.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the full answer as JSON")
	askCmd.Flags().StringVar(&askSession, "session", "", "session correlation ID")
	askCmd.Flags().BoolVar(&askAll, "all-sources", false, "show low-scoring sources too")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	answer, err := queryService.Query(cmd.Context(), domain.QueryRequest{
		Query:     args[0],
		SessionID: askSession,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printAnswer(cmd, answer)
	return nil
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Answer)

	if answer.GeneralAnswer != nil {
		cmd.Println()
		cmd.Println(*answer.GeneralAnswer)
	}

	sources := answer.Sources
	if !askAll {
		sources = domain.FilterForDisplay(sources, displayMinScore(), answer.Degraded)
	}

	if len(sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, s := range sources {
			line := fmt.Sprintf("  [%d] %s", s.LocalID, s.Document)
			if s.Section != "" {
				line += " > " + s.Section
			}
			cmd.Printf("%s (%.2f)\n", line, s.Score)
		}
	}

	if answer.Degraded {
		cmd.Println()
		cmd.Println("Note: reranking was unavailable, sources are in retrieval order.")
	}

	if answer.TokenUsage != nil {
		cmd.Println()
		cmd.Printf("Tokens: %d prompt, %d completion (est. $%.4f) in %.0fms\n",
			answer.TokenUsage.PromptTokens,
			answer.TokenUsage.CompletionTokens,
			answer.TokenUsage.EstimatedCostUSD,
			answer.Timing.TotalMS)
	}
}

// displayMinScore reads the configured display threshold, falling back
// to the default when settings are unavailable.
func displayMinScore() float64 {
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			return settings.Pipeline.DisplayMinScore
		}
	}
	return domain.DefaultAppSettings().Pipeline.DisplayMinScore
}
