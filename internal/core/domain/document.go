package domain

import "time"

// Document represents an ingested document after normalisation.
// It is immutable once stored and is deleted as a unit together
// with every chunk it owns.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path, repo path, upload name).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full normalised text before chunking.
	Content string

	// Sections are the structural markers found during normalisation,
	// ordered by offset.
	Sections []SectionMarker

	// Links are hyperlink references found during normalisation.
	Links []LinkRef

	// Images are image references found during normalisation.
	Images []ImageRef

	// TokenCount is the total token count of Content.
	TokenCount int

	// Metadata contains arbitrary key-value pairs from the source.
	Metadata map[string]any

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-ingested.
	UpdatedAt time.Time
}

// SectionMarker records a heading and its position in the normalised text.
type SectionMarker struct {
	// Title is the heading text.
	Title string

	// Offset is the byte offset of the heading in Document.Content.
	Offset int
}

// LinkRef records a hyperlink and where it occurred in the normalised text.
type LinkRef struct {
	// Text is the anchor text.
	Text string

	// URL is the link target.
	URL string

	// Offset is the byte offset of the anchor in Document.Content.
	Offset int
}

// ImageRef records an image reference and where it occurred.
type ImageRef struct {
	// Alt is the alternative text, may be empty.
	Alt string

	// URL is the image location.
	URL string

	// Offset is the byte offset in Document.Content where the image appeared.
	Offset int
}

// Chunk is an overlapping token window of a document, the unit of
// embedding and retrieval. Chunks are created by the chunker, receive
// their embedding before storage, and are never mutated afterwards
// except by deletion of the owning document.
type Chunk struct {
	// ID is the deterministic chunk identifier.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Text is the chunk's text span.
	Text string

	// TokenCount is the number of tokens in Text.
	// Always <= the configured chunk size.
	TokenCount int

	// SequenceIndex is the ordinal position within the document.
	SequenceIndex int

	// Section is the nearest heading at or before the chunk start.
	Section string

	// Links are the link targets whose position falls within this chunk.
	Links []string

	// Images are the image URLs whose position falls within this chunk.
	Images []string

	// Embedding is the vector representation, attached before storage.
	Embedding []float32
}

// RawDocument represents opaque bytes fetched by a document source,
// before normalisation.
type RawDocument struct {
	// URI is the original location.
	URI string

	// Title is a display name hint, may be empty.
	Title string

	// Content is the raw byte payload.
	Content []byte

	// MIMEType identifies the payload format.
	MIMEType string

	// Metadata contains source-specific key-value pairs.
	Metadata map[string]any
}

// ChangeType classifies a document change observed by a watching source.
type ChangeType string

// Watch event types. Creation and modification both re-ingest, so they
// share one type.
const (
	ChangeUpserted ChangeType = "upserted"
	ChangeDeleted  ChangeType = "deleted"
)

// RawDocumentChange is a change event emitted by a watching source.
type RawDocumentChange struct {
	// Type is the observed operation.
	Type ChangeType

	// Document is the changed document. For deletions only URI is set.
	Document RawDocument
}
