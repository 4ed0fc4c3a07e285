package driving

import (
	"context"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// IngestService coordinates document ingestion into the corpus.
type IngestService interface {
	// Ingest fetches documents from a target and indexes them.
	// The target is a filesystem path or a github repository URL.
	// Re-ingesting a URI replaces the previous version atomically.
	// Per-document failures are reported in the results, not returned
	// as an error.
	Ingest(ctx context.Context, target string) ([]domain.IngestResult, error)

	// IngestDocument indexes a single raw document.
	// Used for direct uploads and watch-triggered re-ingestion.
	IngestDocument(ctx context.Context, raw domain.RawDocument) (*domain.IngestResult, error)

	// Watch re-ingests documents under a target as they change.
	// Blocks until the context is cancelled. Only filesystem targets
	// support watching.
	Watch(ctx context.Context, target string) error
}
