// Package tui provides the interactive terminal chat for docent.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"errors"

	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the chat UI.
type Ports struct {
	// Query answers questions against the corpus.
	Query driving.QueryService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Query == nil {
		return errors.New("tui: query service is required")
	}
	return nil
}
