package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docent/internal/chunker"
	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/metrics"
)

// Ensure IngestOrchestrator implements the interface.
var _ driving.IngestService = (*IngestOrchestrator)(nil)

// SourceResolver maps an ingest target (filesystem path or repository
// URL) onto a concrete document source. Wired in main so the core stays
// free of adapter imports.
type SourceResolver func(target string) (driven.DocumentSource, error)

// IngestOrchestrator coordinates document ingestion: fetch, normalise,
// chunk, embed, store. Re-ingesting a URI replaces the stored version.
type IngestOrchestrator struct {
	resolve  SourceResolver
	registry driven.NormaliserRegistry
	chunker  *chunker.Chunker
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	docStore driven.DocumentStore
	settings domain.AppSettings
}

// NewIngestOrchestrator creates the ingest orchestrator.
func NewIngestOrchestrator(
	resolve SourceResolver,
	registry driven.NormaliserRegistry,
	chunker *chunker.Chunker,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	docStore driven.DocumentStore,
	settings domain.AppSettings,
) *IngestOrchestrator {
	return &IngestOrchestrator{
		resolve:  resolve,
		registry: registry,
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		docStore: docStore,
		settings: settings,
	}
}

// Ingest fetches documents from a target and indexes them.
// Per-document failures land in the corresponding result's Err field;
// only source-level failures and cancellation return an error.
func (o *IngestOrchestrator) Ingest(ctx context.Context, target string) ([]domain.IngestResult, error) {
	logger.Section("Ingest")

	src, err := o.resolve(target)
	if err != nil {
		return nil, fmt.Errorf("resolve target %q: %w", target, err)
	}
	defer src.Close()

	if err := src.Validate(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	logger.Info("Ingesting from %s source: %s", src.Type(), target)
	docsCh, errsCh := src.Fetch(ctx)

	var results []domain.IngestResult
	for docsCh != nil || errsCh != nil {
		select {
		case <-ctx.Done():
			return results, ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			logger.Warn("Source error: %v", err)
			metrics.IngestFailed()
			results = append(results, domain.IngestResult{Err: err})

		case raw, ok := <-docsCh:
			if !ok {
				docsCh = nil
				continue
			}
			logger.Debug("Processing: %s", raw.URI)
			results = append(results, o.ingestOne(ctx, raw))
		}
	}

	logger.Info("Ingest complete: %d documents, %d failed", len(results), countFailed(results))
	return results, nil
}

// IngestDocument indexes a single raw document.
func (o *IngestOrchestrator) IngestDocument(ctx context.Context, raw domain.RawDocument) (*domain.IngestResult, error) {
	result := o.ingestOne(ctx, raw)
	if result.Err != nil {
		return nil, result.Err
	}
	return &result, nil
}

// Watch re-ingests documents under a target as they change and removes
// deleted ones. Blocks until the context is cancelled.
func (o *IngestOrchestrator) Watch(ctx context.Context, target string) error {
	src, err := o.resolve(target)
	if err != nil {
		return fmt.Errorf("resolve target %q: %w", target, err)
	}
	defer src.Close()

	if !src.Capabilities().SupportsWatch {
		return fmt.Errorf("%w: %s source does not support watching", domain.ErrUnsupportedType, src.Type())
	}
	if err := src.Validate(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	changes, err := src.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", target, err)
	}
	logger.Info("Watching %s for changes", target)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case change, ok := <-changes:
			if !ok {
				return nil
			}
			switch change.Type {
			case domain.ChangeUpserted:
				logger.Debug("Changed: %s", change.Document.URI)
				result := o.ingestOne(ctx, change.Document)
				if result.Err == nil {
					logger.Info("Re-ingested %s: %d chunks", change.Document.URI, result.Chunks)
				}

			case domain.ChangeDeleted:
				if err := o.removeByURI(ctx, change.Document.URI); err != nil {
					logger.Warn("Failed to remove %s: %v", change.Document.URI, err)
				}
			}
		}
	}
}

// ingestOne runs the ingestion pipeline for a single raw document.
func (o *IngestOrchestrator) ingestOne(ctx context.Context, raw domain.RawDocument) domain.IngestResult {
	start := time.Now()
	result := domain.IngestResult{URI: raw.URI}

	fail := func(err error) domain.IngestResult {
		metrics.IngestFailed()
		logger.Warn("Ingest failed for %s: %v", raw.URI, err)
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	// 1. SIZE GUARD
	if max := o.settings.Ingest.MaxFileBytes; max > 0 && int64(len(raw.Content)) > max {
		return fail(fmt.Errorf("%w: %s exceeds the %d byte limit", domain.ErrInvalidInput, raw.URI, max))
	}

	// 2. NORMALISE (produces Document with Content and structure markers)
	doc, err := o.registry.Normalise(ctx, &raw)
	if err != nil {
		return fail(fmt.Errorf("normalise: %w", err))
	}
	doc.TokenCount = chunker.CountTokens(doc.Content)

	// 3. REPLACE PREVIOUS VERSION (delete + reinsert keyed by URI)
	if existing, err := o.docStore.GetDocumentByURI(ctx, raw.URI); err == nil {
		if err := deleteDocumentEverywhere(ctx, o.vectors, o.docStore, o.settings.VectorStore.Timeout, existing.ID); err != nil {
			return fail(fmt.Errorf("replace %s: %w", raw.URI, err))
		}
		result.Replaced = true
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fail(fmt.Errorf("lookup %s: %w", raw.URI, err))
	}

	// 4. ASSIGN IDENTITY
	doc.ID = uuid.NewString()
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	// 5. CHUNK
	chunks, err := o.chunker.Chunk(doc)
	if err != nil {
		return fail(fmt.Errorf("chunk: %w", err))
	}
	if len(chunks) == 0 {
		return fail(fmt.Errorf("%w: %s has no indexable text", domain.ErrInvalidInput, raw.URI))
	}

	// 6. EMBED (document intent, batched, bounded workers)
	if err := o.embedChunks(ctx, chunks); err != nil {
		return fail(fmt.Errorf("embed: %w", err))
	}

	// 7. PERSIST METADATA, THEN VECTORS
	// A vector must never exist without its chunk; the reverse only
	// leaves an unsearchable chunk that the next ingest replaces.
	if err := o.docStore.SaveDocument(ctx, doc); err != nil {
		return fail(fmt.Errorf("save document: %w", err))
	}
	if err := o.docStore.SaveChunks(ctx, chunks); err != nil {
		return fail(fmt.Errorf("save chunks: %w", err))
	}

	entries := make([]driven.VectorEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = driven.VectorEntry{ChunkID: c.ID, DocumentID: doc.ID, Vector: c.Embedding}
	}
	vctx, cancel := callCtx(ctx, o.settings.VectorStore.Timeout)
	err = o.vectors.Upsert(vctx, entries)
	cancel()
	if err != nil {
		return fail(fmt.Errorf("upsert vectors: %w", err))
	}

	result.DocumentID = doc.ID
	result.Title = doc.Title
	result.Chunks = len(chunks)
	result.Tokens = doc.TokenCount
	result.Duration = time.Since(start)

	metrics.DocumentIngested(len(chunks))
	logger.Info("Ingested %s: %d chunks, %d tokens (%.0fms)",
		raw.URI, result.Chunks, result.Tokens, float64(result.Duration.Microseconds())/1000.0)
	return result
}

// embedChunks fills chunk embeddings in place, batching provider calls
// and bounding parallel batches by the configured concurrency.
func (o *IngestOrchestrator) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	batchSize := o.settings.Ingest.BatchSize
	if batchSize <= 0 {
		batchSize = len(chunks)
	}
	workers := o.settings.Ingest.Concurrency
	if workers <= 0 {
		workers = 1
	}

	type batch struct{ start, end int }

	jobs := make(chan batch)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				texts := make([]string, b.end-b.start)
				for i := b.start; i < b.end; i++ {
					texts[i-b.start] = chunks[i].Text
				}

				vectors, err := o.embedBatch(ctx, texts)
				if err != nil {
					setErr(err)
					continue
				}
				if len(vectors) != len(texts) {
					setErr(fmt.Errorf("embedding count mismatch: got %d for %d texts", len(vectors), len(texts)))
					continue
				}
				for i := b.start; i < b.end; i++ {
					chunks[i].Embedding = vectors[i-b.start]
				}
			}
		}()
	}

feed:
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		select {
		case jobs <- batch{start: start, end: end}:
		case <-ctx.Done():
			setErr(ctx.Err())
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return firstErr
}

// embedBatch embeds one batch of chunk texts, retrying transient
// provider failures with the same bounded backoff as query embedding.
func (o *IngestOrchestrator) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	backoff := embedBackoffBase

	for attempt := 1; attempt <= embedAttempts; attempt++ {
		ectx, cancel := callCtx(ctx, o.settings.Embedding.Timeout)
		vectors, err := o.embedder.EmbedDocuments(ectx, texts)
		cancel()
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Chunk embedding attempt %d/%d failed: %v", attempt, embedAttempts, err)

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

// removeByURI deletes a stored document by its source URI.
// Missing documents are not an error.
func (o *IngestOrchestrator) removeByURI(ctx context.Context, uri string) error {
	doc, err := o.docStore.GetDocumentByURI(ctx, uri)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup %s: %w", uri, err)
	}

	logger.Info("Removing %s", uri)
	return deleteDocumentEverywhere(ctx, o.vectors, o.docStore, o.settings.VectorStore.Timeout, doc.ID)
}

// countFailed counts results carrying an error.
func countFailed(results []domain.IngestResult) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	return failed
}
