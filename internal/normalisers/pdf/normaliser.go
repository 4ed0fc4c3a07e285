// Package pdf extracts plain text from PDF documents, one section
// marker per page.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Format-specific normaliser
}

var multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)

// Normalise extracts text from a PDF page by page. Pages that cannot
// be decoded are skipped; the document fails only when no page yields
// text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable PDF: %v", domain.ErrInvalidInput, err)
	}

	var out strings.Builder
	var sections []domain.SectionMarker

	pageCount := reader.NumPage()
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = cleanPageText(text)
		if text == "" {
			continue
		}

		sections = append(sections, domain.SectionMarker{
			Title:  fmt.Sprintf("Page %d", i),
			Offset: out.Len(),
		})
		out.WriteString(text)
		out.WriteString("\n\n")
	}

	doc := &domain.Document{
		URI:      raw.URI,
		Title:    extractTitle(raw),
		Content:  strings.TrimRight(out.String(), "\n"),
		Sections: sections,
		Metadata: copyMetadata(raw.Metadata),
	}

	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["mime_type"] = raw.MIMEType
	doc.Metadata["pages"] = pageCount

	return doc, nil
}

// cleanPageText collapses the extraction artifacts PDF text tends to
// carry: runs of spaces and stray blank lines.
func cleanPageText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = multiSpaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// extractTitle uses the source's display hint when present, otherwise
// derives a human-readable title from the URI.
func extractTitle(raw *domain.RawDocument) string {
	if raw.Title != "" {
		return raw.Title
	}
	filename := filepath.Base(raw.URI)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
