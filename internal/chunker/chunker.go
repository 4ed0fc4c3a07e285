// Package chunker splits normalised document text into overlapping
// token windows with provenance metadata. Chunk boundaries are
// deterministic: the same text and configuration always yield the
// same chunks, token counts and IDs.
package chunker

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// DefaultChunkSize is the default window size in tokens.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default overlap between consecutive
// windows in tokens.
const DefaultChunkOverlap = 120

// idSeedLength is how much of the chunk text feeds the chunk ID.
const idSeedLength = 100

// Chunker splits document content into overlapping token windows.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the window size in tokens.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between consecutive windows in tokens.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a chunker. Returns ErrInvalidConfig when the overlap is
// not smaller than the chunk size or either value is non-positive.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, c.chunkSize)
	}
	if c.overlap <= 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be positive, got %d", domain.ErrInvalidConfig, c.overlap)
	}
	if c.overlap >= c.chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			domain.ErrInvalidConfig, c.overlap, c.chunkSize)
	}

	return c, nil
}

// ChunkSize returns the configured window size in tokens.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap returns the configured overlap in tokens.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Chunk splits the document into ordered overlapping windows covering
// the entire text. Every window except the last holds exactly the
// configured number of tokens; consecutive windows share exactly the
// configured overlap. Section, links and images are assigned from the
// document's structural metadata by byte position.
func (c *Chunker) Chunk(doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	tokens := Tokenize(doc.Content)
	if len(tokens) == 0 {
		return nil, nil
	}

	stride := c.chunkSize - c.overlap
	estimated := len(tokens)/stride + 1
	chunks := make([]domain.Chunk, 0, estimated)

	for start := 0; start < len(tokens); start += stride {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		spanStart := tokens[start].Start
		spanEnd := tokens[end-1].End
		text := doc.Content[spanStart:spanEnd]
		index := len(chunks)

		chunks = append(chunks, domain.Chunk{
			ID:            chunkID(doc.URI, index, text),
			DocumentID:    doc.ID,
			Text:          text,
			TokenCount:    end - start,
			SequenceIndex: index,
			Section:       sectionAt(doc.Sections, spanStart),
			Links:         linksInSpan(doc.Links, spanStart, spanEnd),
			Images:        imagesInSpan(doc.Images, spanStart, spanEnd),
		})

		if end == len(tokens) {
			break
		}
	}

	return chunks, nil
}

// chunkID derives a stable identifier from the document URI, the chunk
// index and a prefix of the chunk text. Re-ingesting identical content
// yields identical IDs, which keeps vector upserts idempotent.
func chunkID(uri string, index int, text string) string {
	seed := text
	if len(seed) > idSeedLength {
		seed = seed[:idSeedLength]
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d:%s", uri, index, seed)))
	return "chunk_" + hex.EncodeToString(sum[:])[:12]
}

// sectionAt returns the title of the nearest section marker at or
// before the byte offset. Markers are expected in ascending offset
// order, as the normalisers emit them.
func sectionAt(sections []domain.SectionMarker, offset int) string {
	section := ""
	for _, s := range sections {
		if s.Offset > offset {
			break
		}
		section = s.Title
	}
	return section
}

// linksInSpan collects link targets positioned within [start, end).
func linksInSpan(links []domain.LinkRef, start, end int) []string {
	var urls []string
	for _, l := range links {
		if l.Offset >= start && l.Offset < end {
			urls = append(urls, l.URL)
		}
	}
	return urls
}

// imagesInSpan collects image URLs positioned within [start, end).
func imagesInSpan(images []domain.ImageRef, start, end int) []string {
	var urls []string
	for _, img := range images {
		if img.Offset >= start && img.Offset < end {
			urls = append(urls, img.URL)
		}
	}
	return urls
}
