package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// Ensure PromptBuilder accepts custom prompt stores.
var _ driven.PromptStoreAware = (*PromptBuilder)(nil)

// Default prompt templates. A PromptStore can override them per name.
const (
	defaultGroundedSystem = `You are a knowledgeable assistant that helps users understand their documents through clear, conversational answers.

RULES:
1. Answer ONLY using information from the numbered sources below.
2. Cite inline with [1], [2] immediately after every claim or fact.
3. Write in a natural tone with focused paragraphs.
4. When a source carries links, mention them where they help the reader.
5. When a source carries images, reference them: "as shown in the diagram [2]".
6. If the sources are insufficient, say so honestly: "I don't have enough information in the uploaded documents to fully answer this."
7. Never state anything the sources do not support.`

	defaultGeneralAnswer = `You are a helpful assistant. The user asked a question, but none of their uploaded documents contain relevant information.

Answer from your general knowledge, and make it clear the answer is not based on the uploaded documents. Start with a phrase like "Based on general knowledge". Keep the answer concise. Do not mention any specific documents or sources.

User question: %s`
)

// PromptSource is one grounding source as presented to the model.
// Text is the full chunk text; display truncation happens in the
// user-facing Source projection, never here.
type PromptSource struct {
	// LocalID is the 1-indexed position matching the returned source list.
	LocalID int

	// Document is the owning document's display name.
	Document string

	// Section is the chunk's nearest heading, may be empty.
	Section string

	// Text is the full chunk text.
	Text string

	// Links are link targets carried by the chunk.
	Links []string

	// Images are image URLs carried by the chunk.
	Images []string
}

// PromptBuilder assembles generation prompts from sources and history.
// Pure apart from the optional prompt store lookup.
type PromptBuilder struct {
	store driven.PromptStore
}

// NewPromptBuilder creates a builder using the compiled-in templates.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (b *PromptBuilder) SetPromptStore(store driven.PromptStore) {
	b.store = store
}

// load returns the named template, falling back to the compiled default
// when no store is set or the store has no usable entry.
func (b *PromptBuilder) load(name, fallback string) string {
	if b.store == nil {
		return fallback
	}
	prompt, err := b.store.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}

// BuildGrounded builds the prompt for grounded answer generation.
// Sources are enumerated by LocalID so the [n] markers the model emits
// resolve against the same list returned to the caller.
func (b *PromptBuilder) BuildGrounded(query string, sources []PromptSource, history domain.ConversationContext) string {
	var sb strings.Builder

	sb.WriteString(b.load(driven.PromptGroundedSystem, defaultGroundedSystem))

	sb.WriteString("\n\nCONTEXT FROM UPLOADED DOCUMENTS:\n")
	for i, src := range sources {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] Source: %s\n", src.LocalID, src.Document)
		if src.Section != "" {
			fmt.Fprintf(&sb, "Section: %s\n", src.Section)
		}
		fmt.Fprintf(&sb, "Text: %s", src.Text)
		if len(src.Links) > 0 {
			fmt.Fprintf(&sb, "\nLinks: %s", strings.Join(src.Links, ", "))
		}
		if len(src.Images) > 0 {
			fmt.Fprintf(&sb, "\nImages: %s", strings.Join(src.Images, ", "))
		}
	}

	if !history.IsEmpty() {
		sb.WriteString("\n\nPrevious conversation:\n")
		for _, turn := range history.Turns {
			role := "User"
			if turn.Role == domain.RoleAssistant {
				role = "Assistant"
			}
			fmt.Fprintf(&sb, "%s: %s\n", role, turn.Content)
		}
	}

	fmt.Fprintf(&sb, "\nCURRENT USER QUESTION: %s\n", query)
	sb.WriteString("\nYOUR ANSWER (conversational, well-structured, with inline citations):")

	return sb.String()
}

// BuildGeneral builds the prompt for a general-knowledge answer, used
// when no relevant context was found in the corpus.
func (b *PromptBuilder) BuildGeneral(query string) string {
	return fmt.Sprintf(b.load(driven.PromptGeneralAnswer, defaultGeneralAnswer), query)
}
