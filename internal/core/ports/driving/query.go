package driving

import (
	"context"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// QueryService answers questions grounded in the ingested corpus.
// This is used by CLI, TUI, REST, and MCP adapters.
type QueryService interface {
	// Query runs the full retrieval pipeline for a question and returns a
	// grounded answer with citations. When nothing relevant is retrieved,
	// the answer states that and a general knowledge answer is attached
	// separately.
	Query(ctx context.Context, req domain.QueryRequest) (*domain.Answer, error)
}
