package driven

import (
	"context"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// DocumentSource fetches raw documents for ingestion.
// Each source type (filesystem, github) implements this interface.
type DocumentSource interface {
	// Type returns the source type identifier.
	Type() string

	// Capabilities returns what this source supports.
	Capabilities() SourceCapabilities

	// Validate checks if the source is properly configured and reachable.
	// For filesystem, this checks the path exists and is readable.
	// For API sources, this typically makes a test call.
	// Returns nil if ready to fetch, error describing the problem otherwise.
	Validate(ctx context.Context) error

	// Fetch streams all documents from the source.
	// Returns channels for documents and errors. Both channels are closed
	// when the fetch completes. Per-document errors are sent on the error
	// channel without terminating the stream.
	Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch listens for changes and emits change events until the
	// context is cancelled. Only available if SupportsWatch is true.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases resources.
	Close() error
}

// SourceCapabilities describes what a source supports.
type SourceCapabilities struct {
	// SupportsWatch indicates the source can push real-time change events.
	SupportsWatch bool

	// RequiresAuth indicates the source needs authentication.
	// False for local sources like filesystem.
	RequiresAuth bool

	// SupportsRateLimiting indicates the source throttles its own API calls.
	SupportsRateLimiting bool
}
