package domain

import "unicode/utf8"

// NoContextAnswer is the fixed user-facing answer when no relevant
// documents are found for a query.
const NoContextAnswer = "I don't have information about this in the uploaded documents."

// displayTextLimit is the maximum rune length of a source's display text.
const displayTextLimit = 200

// QueryRequest is one question against the corpus. Conversation state is
// supplied by the caller on every invocation; the core keeps no session
// registry.
type QueryRequest struct {
	// Query is the natural-language question.
	Query string `json:"query"`

	// History is the prior conversation, oldest first.
	History []ChatTurn `json:"chat_history,omitempty"`

	// SessionID is an opaque caller-provided correlation ID.
	SessionID string `json:"session_id,omitempty"`
}

// RetrievedCandidate is a first-stage dense search hit.
// Transient, produced per query.
type RetrievedCandidate struct {
	// Chunk is the retrieved chunk.
	Chunk Chunk

	// Similarity is the cosine similarity against the query vector.
	Similarity float64
}

// RerankedResult is a cross-encoder scored candidate.
// Transient, always drawn from the retrieval candidates of the same query.
type RerankedResult struct {
	// Chunk is the scored chunk.
	Chunk Chunk

	// Score is the cross-encoder relevance score, or the original
	// similarity when the reranker fell back.
	Score float64
}

// Source is the citation-facing projection of a retrieved chunk.
// LocalID values form a contiguous 1-based sequence in final ranked
// order and are the only index citation markers reference.
type Source struct {
	// LocalID is the 1-indexed position within one response.
	LocalID int `json:"id"`

	// ChunkID identifies the underlying chunk.
	ChunkID string `json:"chunk_id"`

	// Text is the chunk text truncated for display.
	Text string `json:"text"`

	// Document is the owning document's title.
	Document string `json:"document"`

	// Section is the chunk's nearest heading, may be empty.
	Section string `json:"section,omitempty"`

	// Links are link targets carried by the chunk.
	Links []string `json:"links,omitempty"`

	// Images are image URLs carried by the chunk.
	Images []string `json:"images,omitempty"`

	// Score is the rerank score, or the similarity score on fallback.
	Score float64 `json:"score"`
}

// TruncateForDisplay shortens chunk text to the display limit,
// appending an ellipsis when truncated.
func TruncateForDisplay(text string) string {
	if utf8.RuneCountInString(text) <= displayTextLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:displayTextLimit]) + "..."
}

// FilterForDisplay returns the sources a UI should show: those scoring at
// or above minScore. The threshold is calibrated to cross-encoder scores,
// so degraded responses (similarity scores) are exempt. The wire response
// always carries the full list; hiding is purely a presentation concern.
func FilterForDisplay(sources []Source, minScore float64, degraded bool) []Source {
	if degraded {
		return sources
	}
	shown := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.Score >= minScore {
			shown = append(shown, s)
		}
	}
	return shown
}

// Timing holds per-stage wall-clock durations in milliseconds.
// RetrievalMS covers the vector search stage; embedding time is
// recorded separately in logs and metrics.
type Timing struct {
	RetrievalMS float64 `json:"retrieval_ms"`
	RerankMS    float64 `json:"rerank_ms"`
	LLMMS       float64 `json:"llm_ms"`
	TotalMS     float64 `json:"total_ms"`
}

// TokenUsage holds estimated token accounting for one generation call.
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// GenerationResult is the output of one LLM generation call.
type GenerationResult struct {
	// Text is the generated answer, possibly containing [n] markers.
	Text string

	// PromptTokens is the estimated prompt token count.
	PromptTokens int

	// CompletionTokens is the estimated completion token count.
	CompletionTokens int

	// EstimatedCostUSD is the estimated call cost.
	EstimatedCostUSD float64
}

// Answer is the final result of one query pipeline run.
type Answer struct {
	// Answer is the generated text, containing [n] citation markers.
	Answer string `json:"answer"`

	// Sources is the grounding source list in ranked order.
	// Empty (never nil) when no relevant documents were found.
	Sources []Source `json:"sources"`

	// HasContext reports whether the answer is grounded in the corpus.
	HasContext bool `json:"has_context"`

	// GeneralAnswer carries the general-knowledge reply when no
	// relevant context was found, nil otherwise.
	GeneralAnswer *string `json:"general_answer,omitempty"`

	// Timing holds per-stage durations.
	Timing Timing `json:"timing"`

	// TokenUsage is the generation token accounting, nil when the
	// grounded generation stage did not run.
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`

	// Degraded reports that the reranker fell back to retrieval order.
	Degraded bool `json:"degraded,omitempty"`

	// SessionID echoes the caller's correlation ID.
	SessionID string `json:"session_id,omitempty"`
}
