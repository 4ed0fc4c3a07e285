package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// LibraryService manages the ingested document corpus.
type LibraryService interface {
	// List returns all ingested documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// GetContent returns the full normalised content of a document.
	GetContent(ctx context.Context, documentID string) (string, error)

	// GetDetails returns document metadata for display.
	GetDetails(ctx context.Context, documentID string) (*DocumentDetails, error)

	// Delete removes a document, its chunks, and its vectors.
	Delete(ctx context.Context, documentID string) error

	// Stats returns corpus-wide counts.
	Stats(ctx context.Context) (*domain.CorpusStats, error)
}

// DocumentDetails provides a standardised view of document metadata.
type DocumentDetails struct {
	// ID is the unique document identifier.
	ID string

	// Title is the document title.
	Title string

	// URI is the original location.
	URI string

	// ChunkCount is the number of chunks.
	ChunkCount int

	// TokenCount is the total token estimate for the content.
	TokenCount int

	// CreatedAt is when the document was first indexed.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time

	// Metadata contains flattened key-value pairs for display.
	Metadata map[string]string
}
