package mcp

import (
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers questions against the corpus.
	Query driving.QueryService

	// Ingest indexes documents.
	Ingest driving.IngestService

	// Library manages the ingested corpus.
	Library driving.LibraryService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	// Ingest and Library are optional; their tools degrade gracefully.
	return nil
}
