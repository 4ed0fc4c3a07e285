package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
)

// Ensure LibraryService implements the interface.
var _ driving.LibraryService = (*LibraryService)(nil)

// LibraryService manages the ingested document corpus.
type LibraryService struct {
	docStore driven.DocumentStore
	vectors  driven.VectorStore
	settings domain.AppSettings
}

// NewLibraryService creates a new library service.
func NewLibraryService(docStore driven.DocumentStore, vectors driven.VectorStore, settings domain.AppSettings) *LibraryService {
	return &LibraryService{
		docStore: docStore,
		vectors:  vectors,
		settings: settings,
	}
}

// List returns all ingested documents.
func (s *LibraryService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// Get retrieves a document by ID.
func (s *LibraryService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// GetContent returns the full normalised content of a document,
// reassembled from its chunks in sequence order.
func (s *LibraryService) GetContent(ctx context.Context, documentID string) (string, error) {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return "", err
	}

	chunks, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(chunk.Text)
	}
	return builder.String(), nil
}

// GetDetails returns document metadata for display.
func (s *LibraryService) GetDetails(ctx context.Context, documentID string) (*driving.DocumentDetails, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	chunks, err := s.docStore.GetChunks(ctx, documentID)
	chunkCount := 0
	if err == nil {
		chunkCount = len(chunks)
	}

	metadata := make(map[string]string)
	for key, value := range doc.Metadata {
		metadata[key] = fmt.Sprintf("%v", value)
	}

	return &driving.DocumentDetails{
		ID:         doc.ID,
		Title:      doc.Title,
		URI:        doc.URI,
		ChunkCount: chunkCount,
		TokenCount: doc.TokenCount,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		Metadata:   metadata,
	}, nil
}

// Delete removes a document, its chunks, and its vectors.
func (s *LibraryService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return err
	}

	logger.Info("Deleting document %s", documentID)
	return deleteDocumentEverywhere(ctx, s.vectors, s.docStore, s.settings.VectorStore.Timeout, documentID)
}

// Stats returns corpus-wide counts alongside the active model names.
func (s *LibraryService) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	docs, err := s.docStore.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	chunks, err := s.docStore.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	vctx, cancel := callCtx(ctx, s.settings.VectorStore.Timeout)
	vectors, err := s.vectors.Count(vctx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("count vectors: %w", err)
	}

	stats := &domain.CorpusStats{
		Documents:      docs,
		Chunks:         chunks,
		Vectors:        vectors,
		EmbeddingModel: s.settings.Embedding.Model,
		LLMModel:       s.settings.LLM.Model,
	}
	if s.settings.Rerank.IsConfigured() {
		stats.RerankModel = s.settings.Rerank.Model
	}
	return stats, nil
}

// deleteDocumentEverywhere removes a document's vectors first, then its
// metadata, so a concurrent query never retrieves a chunk whose
// document row is already gone. A vector store failure leaves the
// document intact and retryable.
func deleteDocumentEverywhere(ctx context.Context, vectors driven.VectorStore, docStore driven.DocumentStore, timeout time.Duration, documentID string) error {
	vctx, cancel := callCtx(ctx, timeout)
	err := vectors.DeleteByDocument(vctx, documentID)
	cancel()
	if err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}

	if err := docStore.DeleteDocument(ctx, documentID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
