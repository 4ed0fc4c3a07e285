package driven

import (
	"context"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// Normaliser transforms raw documents into indexed form.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Specific MIME normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise transforms a raw document into a normalised document.
	// The returned document has Content populated along with any section,
	// link, and image markers recovered from the source format. Chunking
	// happens later in the ingest pipeline.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}
