package markdown

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents. Formatting is stripped while
// headings, links, and images are recovered as structure markers with
// byte offsets into the stripped content.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Format-specific normaliser, higher than plaintext
}

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	hrRe      = regexp.MustCompile(`^[-*_]{3,}$`)
	listRe    = regexp.MustCompile(`^\s*(?:[-*+]|\d+\.)\s+`)
	quoteRe   = regexp.MustCompile(`^>\s?`)

	// refRe matches both ![alt](url) and [text](url), with an optional
	// quoted title inside the parentheses.
	refRe = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)

	inlineCodeRe = regexp.MustCompile("`([^`]*)`")
)

// Normalise converts a markdown document to a normalised document.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")

	var out strings.Builder
	var sections []domain.SectionMarker
	var links []domain.LinkRef
	var images []domain.ImageRef
	var title string

	inFence := false
	lastBlank := true

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		// Fenced code blocks are dropped wholesale; embedded prose in
		// code rarely helps retrieval and the fences break sentences.
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if hrRe.MatchString(trimmed) {
			continue
		}

		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			text := stripInline(m[2], out.Len(), &links, &images)
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			if title == "" && len(m[1]) == 1 {
				title = text
			}
			sections = append(sections, domain.SectionMarker{Title: text, Offset: out.Len()})
			out.WriteString(text)
			out.WriteString("\n")
			lastBlank = false
			continue
		}

		// Strip blockquote markers, including nested ones.
		text := line
		for quoteRe.MatchString(strings.TrimLeft(text, " \t")) {
			text = quoteRe.ReplaceAllString(strings.TrimLeft(text, " \t"), "")
		}
		text = listRe.ReplaceAllString(text, "")
		text = stripInline(text, out.Len(), &links, &images)
		text = strings.TrimSpace(text)

		// Collapse runs of blank lines so paragraphs stay separated by
		// exactly one.
		if text == "" {
			if !lastBlank {
				out.WriteString("\n")
				lastBlank = true
			}
			continue
		}

		out.WriteString(text)
		out.WriteString("\n")
		lastBlank = false
	}

	if title == "" {
		title = extractTitle(raw)
	}

	doc := &domain.Document{
		URI:      raw.URI,
		Title:    title,
		Content:  strings.TrimRight(out.String(), "\n"),
		Sections: sections,
		Links:    links,
		Images:   images,
		Metadata: copyMetadata(raw.Metadata),
	}

	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["mime_type"] = raw.MIMEType
	doc.Metadata["format"] = "markdown"

	return doc, nil
}

// stripInline removes inline markup from a line. Links keep their
// anchor text and are recorded with the offset the anchor will occupy
// in the output; images are removed entirely and recorded the same way.
// base is the output length before this line is appended.
func stripInline(s string, base int, links *[]domain.LinkRef, images *[]domain.ImageRef) string {
	// Inline code keeps its text; identifiers are worth retrieving.
	s = inlineCodeRe.ReplaceAllString(s, "$1")

	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "*", "")

	matches := refRe.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}

	var out strings.Builder
	last := 0
	for _, m := range matches {
		out.WriteString(s[last:m[0]])
		last = m[1]

		isImage := m[3] > m[2]
		text := s[m[4]:m[5]]
		url := s[m[6]:m[7]]
		offset := base + out.Len()

		if isImage {
			*images = append(*images, domain.ImageRef{Alt: text, URL: url, Offset: offset})
		} else {
			*links = append(*links, domain.LinkRef{Text: text, URL: url, Offset: offset})
			out.WriteString(text)
		}
	}
	out.WriteString(s[last:])
	return out.String()
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
