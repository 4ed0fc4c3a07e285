package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/metrics"
)

// Ensure QueryPipeline implements the interface.
var _ driving.QueryService = (*QueryPipeline)(nil)

// Embedding retry policy. Transient provider failures are retried with
// exponential backoff before the query fails.
const (
	embedAttempts    = 3
	embedBackoffBase = 500 * time.Millisecond
)

// QueryPipeline runs one query through the retrieval pipeline:
// embedding, retrieval, reranking, filtering, generation, citation
// resolution. Stages run strictly in order; the only branch is the
// reranker fallback to retrieval order.
type QueryPipeline struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	docStore driven.DocumentStore
	reranker driven.Reranker
	llm      driven.LLMService
	prompts  *PromptBuilder
	settings domain.AppSettings
}

// NewQueryPipeline creates the pipeline.
// The reranker parameter is optional (can be nil); without it every
// response is marked degraded and ranked by retrieval order.
func NewQueryPipeline(
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	docStore driven.DocumentStore,
	reranker driven.Reranker,
	llm driven.LLMService,
	prompts *PromptBuilder,
	settings domain.AppSettings,
) *QueryPipeline {
	return &QueryPipeline{
		embedder: embedder,
		vectors:  vectors,
		docStore: docStore,
		reranker: reranker,
		llm:      llm,
		prompts:  prompts,
		settings: settings,
	}
}

// Query runs the full retrieval pipeline for one question.
func (p *QueryPipeline) Query(ctx context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	start := time.Now()
	logger.Section("Query Pipeline")

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	logger.Debug("Query: %q (session %q)", query, req.SessionID)
	metrics.QueryStarted()

	timings := make(domain.StageTimings)
	defer func() {
		for stage, d := range timings {
			metrics.ObserveStage(stage.String(), d)
		}
	}()

	// Stage: embedding.
	embedStart := time.Now()
	vector, err := p.embedQuery(ctx, query)
	timings[domain.StageEmbedding] = time.Since(embedStart)
	if err != nil {
		return nil, p.fail(domain.StageEmbedding, err)
	}
	logger.Debug("Query embedding: %d dimensions (%.0fms)",
		len(vector), timings.Millis(domain.StageEmbedding))

	// Stage: retrieval.
	candidates, titles, err := p.retrieve(ctx, vector, timings)
	if err != nil {
		return nil, p.fail(domain.StageRetrieval, err)
	}
	logger.Info("Retrieved %d candidates (%.0fms)",
		len(candidates), timings.Millis(domain.StageRetrieval))

	if len(candidates) == 0 {
		return p.generalAnswer(ctx, req, query, start, timings)
	}

	// Stage: reranking. Failure falls back to retrieval order and marks
	// the response degraded; only caller cancellation aborts here.
	rerankStart := time.Now()
	results, degraded, err := p.rerankStage(ctx, query, candidates)
	timings[domain.StageReranking] = time.Since(rerankStart)
	if err != nil {
		return nil, err
	}
	logger.Info("Reranked to %d results, degraded=%t (%.0fms)",
		len(results), degraded, timings.Millis(domain.StageReranking))

	// Stage: filtering.
	filterStart := time.Now()
	results = dedupeResults(results)
	timings[domain.StageFiltering] = time.Since(filterStart)

	if len(results) == 0 {
		return p.generalAnswer(ctx, req, query, start, timings)
	}

	sources, promptSources := assembleSources(results, titles)

	// Stage: generation.
	history := BoundConversation(req.History, p.settings.Pipeline.ChatHistoryTurns)
	prompt := p.prompts.BuildGrounded(query, promptSources, history)
	genStart := time.Now()
	gen, err := p.generate(ctx, prompt)
	timings[domain.StageGeneration] = time.Since(genStart)
	if err != nil {
		return nil, p.fail(domain.StageGeneration, err)
	}

	// Stage: citation resolution.
	citeStart := time.Now()
	cited := ResolveCitations(gen.Text, sources)
	timings[domain.StageCitationResolution] = time.Since(citeStart)
	logger.Debug("Citations resolved: %v of %d sources", cited, len(sources))

	answer := &domain.Answer{
		Answer:     gen.Text,
		Sources:    sources,
		HasContext: true,
		Timing:     p.timing(start, timings),
		TokenUsage: &domain.TokenUsage{
			PromptTokens:     gen.PromptTokens,
			CompletionTokens: gen.CompletionTokens,
			TotalTokens:      gen.PromptTokens + gen.CompletionTokens,
			EstimatedCostUSD: gen.EstimatedCostUSD,
		},
		Degraded:  degraded,
		SessionID: req.SessionID,
	}

	logger.Info("Query complete: %d sources, %d cited, %.0fms total",
		len(sources), len(cited), answer.Timing.TotalMS)
	return answer, nil
}

// fail records the failing stage and wraps the error for the caller.
// Caller cancellations pass through uncounted: they are not provider
// failures.
func (p *QueryPipeline) fail(stage domain.Stage, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	metrics.QueryFailed(stage.String())
	logger.Warn("Pipeline failed at %s: %v", stage, err)
	return domain.NewStageError(stage, err)
}

// embedQuery embeds the query text, retrying transient provider failures.
func (p *QueryPipeline) embedQuery(ctx context.Context, query string) ([]float32, error) {
	var lastErr error
	backoff := embedBackoffBase

	for attempt := 1; attempt <= embedAttempts; attempt++ {
		ectx, cancel := callCtx(ctx, p.settings.Embedding.Timeout)
		vector, err := p.embedder.EmbedQuery(ectx, query)
		cancel()
		if err == nil {
			return vector, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Query embedding attempt %d/%d failed: %v", attempt, embedAttempts, err)

		if attempt < embedAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, lastErr)
}

// retrieve runs dense search and hydrates hits into chunks with their
// document display names. The recorded retrieval time covers the vector
// search only. Chunks deleted between search and hydration are skipped.
func (p *QueryPipeline) retrieve(
	ctx context.Context, vector []float32, timings domain.StageTimings,
) ([]domain.RetrievedCandidate, map[string]string, error) {
	searchStart := time.Now()
	hits, err := p.searchWithRetry(ctx, vector, p.settings.Pipeline.TopKRetrieval)
	timings[domain.StageRetrieval] = time.Since(searchStart)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	logger.Debug("Vector search: %d hits", len(hits))

	titles := make(map[string]string)
	candidates := make([]domain.RetrievedCandidate, 0, len(hits))
	for _, hit := range hits {
		chunk, err := p.docStore.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}

		if _, ok := titles[chunk.DocumentID]; !ok {
			doc, err := p.docStore.GetDocument(ctx, chunk.DocumentID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
			}
			title := doc.Title
			if title == "" {
				title = doc.URI
			}
			titles[chunk.DocumentID] = title
		}

		candidates = append(candidates, domain.RetrievedCandidate{
			Chunk:      *chunk,
			Similarity: hit.Similarity,
		})
	}

	return candidates, titles, nil
}

// searchWithRetry gives the vector store one retry before giving up.
func (p *QueryPipeline) searchWithRetry(ctx context.Context, vector []float32, topK int) ([]driven.VectorHit, error) {
	sctx, cancel := callCtx(ctx, p.settings.VectorStore.Timeout)
	hits, err := p.vectors.Search(sctx, vector, topK)
	cancel()
	if err == nil {
		return hits, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	logger.Warn("Vector search failed, retrying once: %v", err)

	sctx, cancel = callCtx(ctx, p.settings.VectorStore.Timeout)
	defer cancel()
	return p.vectors.Search(sctx, vector, topK)
}

// rerankStage rescoring each candidate against the query, keeping the
// top results above the relevance threshold in descending score order.
// Any rerank failure falls back to the first topN retrieval candidates
// unmodified, with similarity standing in for the score; the fallback
// threshold is not applied to similarity scores.
func (p *QueryPipeline) rerankStage(
	ctx context.Context, query string, candidates []domain.RetrievedCandidate,
) ([]domain.RerankedResult, bool, error) {
	topN := p.settings.Pipeline.TopKRerank

	if p.reranker == nil {
		logger.Info("Reranker not configured, using retrieval order")
		metrics.RerankFallback()
		return fallbackResults(candidates, topN), true, nil
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Chunk.Text
	}

	rctx, cancel := callCtx(ctx, p.settings.Rerank.Timeout)
	scores, err := p.reranker.Rerank(rctx, query, docs, topN)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		logger.Warn("Rerank failed, falling back to retrieval order: %v", err)
		metrics.RerankFallback()
		return fallbackResults(candidates, topN), true, nil
	}

	results := make([]domain.RerankedResult, 0, len(scores))
	for _, sc := range scores {
		if sc.Index < 0 || sc.Index >= len(candidates) {
			continue
		}
		if sc.Score < p.settings.Pipeline.MinRerankScore {
			continue
		}
		results = append(results, domain.RerankedResult{
			Chunk: candidates[sc.Index].Chunk,
			Score: sc.Score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topN {
		results = results[:topN]
	}

	return results, false, nil
}

// fallbackResults maps the first topN retrieval candidates unmodified.
func fallbackResults(candidates []domain.RetrievedCandidate, topN int) []domain.RerankedResult {
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	results := make([]domain.RerankedResult, len(candidates))
	for i, c := range candidates {
		results[i] = domain.RerankedResult{Chunk: c.Chunk, Score: c.Similarity}
	}
	return results
}

// dedupeResults removes duplicate chunks from the rank order. Two results
// collide when they share (document, section) with a non-empty section,
// or when their text is identical. The earlier instance wins, which is
// the higher-scoring one since results arrive in descending order, and
// survivor order is preserved.
func dedupeResults(results []domain.RerankedResult) []domain.RerankedResult {
	type sectionKey struct {
		documentID string
		section    string
	}
	seenSection := make(map[sectionKey]bool)
	seenText := make(map[string]bool)

	survivors := make([]domain.RerankedResult, 0, len(results))
	for _, r := range results {
		if seenText[r.Chunk.Text] {
			continue
		}
		if r.Chunk.Section != "" {
			key := sectionKey{documentID: r.Chunk.DocumentID, section: r.Chunk.Section}
			if seenSection[key] {
				continue
			}
			seenSection[key] = true
		}
		seenText[r.Chunk.Text] = true
		survivors = append(survivors, r)
	}

	return survivors
}

// assembleSources projects ranked results into the citation-facing source
// list and the full-text prompt sources, assigning contiguous 1-based
// LocalIDs in rank order. Both views share the numbering the model cites.
func assembleSources(results []domain.RerankedResult, titles map[string]string) ([]domain.Source, []PromptSource) {
	sources := make([]domain.Source, len(results))
	promptSources := make([]PromptSource, len(results))

	for i, r := range results {
		id := i + 1
		document := titles[r.Chunk.DocumentID]

		sources[i] = domain.Source{
			LocalID:  id,
			ChunkID:  r.Chunk.ID,
			Text:     domain.TruncateForDisplay(r.Chunk.Text),
			Document: document,
			Section:  r.Chunk.Section,
			Links:    r.Chunk.Links,
			Images:   r.Chunk.Images,
			Score:    r.Score,
		}
		promptSources[i] = PromptSource{
			LocalID:  id,
			Document: document,
			Section:  r.Chunk.Section,
			Text:     r.Chunk.Text,
			Links:    r.Chunk.Links,
			Images:   r.Chunk.Images,
		}
	}

	return sources, promptSources
}

// generate calls the LLM with the assembled prompt and estimates usage.
func (p *QueryPipeline) generate(ctx context.Context, prompt string) (domain.GenerationResult, error) {
	gctx, cancel := callCtx(ctx, p.settings.LLM.Timeout)
	defer cancel()

	text, err := p.llm.Generate(gctx, prompt, driven.GenerateOptions{
		MaxTokens:   p.settings.LLM.MaxTokens,
		Temperature: p.settings.LLM.Temperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.GenerationResult{}, ctx.Err()
		}
		return domain.GenerationResult{}, fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}

	promptTokens := estimateTokens(prompt)
	completionTokens := estimateTokens(text)
	return domain.GenerationResult{
		Text:             text,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		EstimatedCostUSD: p.estimateCost(promptTokens, completionTokens),
	}, nil
}

// generalAnswer handles the no-context path: the user-visible answer is
// the fixed no-context message, and the model's general-knowledge reply
// travels separately in general_answer. Generation failure here degrades
// to a fixed apology instead of failing the query.
func (p *QueryPipeline) generalAnswer(
	ctx context.Context, req domain.QueryRequest, query string,
	start time.Time, timings domain.StageTimings,
) (*domain.Answer, error) {
	logger.Info("No relevant context found, generating general knowledge answer")

	prompt := p.prompts.BuildGeneral(query)

	genStart := time.Now()
	gctx, cancel := callCtx(ctx, p.settings.LLM.Timeout)
	text, err := p.llm.Generate(gctx, prompt, driven.GenerateOptions{
		MaxTokens:   p.settings.LLM.MaxTokens,
		Temperature: p.settings.LLM.Temperature,
	})
	cancel()
	timings[domain.StageGeneration] = time.Since(genStart)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("General answer generation failed: %v", err)
		text = "I don't have information about this in the uploaded documents, " +
			"and I encountered an error generating a general response."
	}

	general := text
	answer := &domain.Answer{
		Answer:        domain.NoContextAnswer,
		Sources:       []domain.Source{},
		HasContext:    false,
		GeneralAnswer: &general,
		Timing:        p.timing(start, timings),
		SessionID:     req.SessionID,
	}

	logger.Info("Query complete without context (%.0fms total)", answer.Timing.TotalMS)
	return answer, nil
}

// timing projects recorded stage durations into the response shape.
func (p *QueryPipeline) timing(start time.Time, timings domain.StageTimings) domain.Timing {
	return domain.Timing{
		RetrievalMS: timings.Millis(domain.StageRetrieval),
		RerankMS:    timings.Millis(domain.StageReranking),
		LLMMS:       timings.Millis(domain.StageGeneration),
		TotalMS:     float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

// estimateCost prices estimated token counts with the configured
// per-million-token rates.
func (p *QueryPipeline) estimateCost(promptTokens, completionTokens int) float64 {
	in := float64(promptTokens) / 1e6 * p.settings.LLM.InputCostPerMTok
	out := float64(completionTokens) / 1e6 * p.settings.LLM.OutputCostPerMTok
	return in + out
}

// estimateTokens approximates the token count as one token per four
// runes, rounded up. Free provider tiers report no exact counts.
func estimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// callCtx bounds a single provider call when a timeout is configured.
func callCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
