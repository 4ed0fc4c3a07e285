package mcp

import (
	"context"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// mockQueryService implements driving.QueryService for tests.
type mockQueryService struct {
	answer  *domain.Answer
	err     error
	lastReq domain.QueryRequest
}

func (m *mockQueryService) Query(_ context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

// mockIngestService implements driving.IngestService for tests.
type mockIngestService struct {
	results    []domain.IngestResult
	err        error
	lastTarget string
}

func (m *mockIngestService) Ingest(_ context.Context, target string) ([]domain.IngestResult, error) {
	m.lastTarget = target
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockIngestService) IngestDocument(_ context.Context, _ domain.RawDocument) (*domain.IngestResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.results) > 0 {
		return &m.results[0], nil
	}
	return &domain.IngestResult{}, nil
}

func (m *mockIngestService) Watch(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

// mockLibraryService implements driving.LibraryService for tests.
type mockLibraryService struct {
	documents []domain.Document
	content   string
	err       error
	deleted   []string
}

func (m *mockLibraryService) List(_ context.Context) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.documents, nil
}

func (m *mockLibraryService) Get(_ context.Context, documentID string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].ID == documentID {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockLibraryService) GetContent(_ context.Context, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.content, nil
}

func (m *mockLibraryService) GetDetails(_ context.Context, documentID string) (*driving.DocumentDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driving.DocumentDetails{ID: documentID}, nil
}

func (m *mockLibraryService) Delete(_ context.Context, documentID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

func (m *mockLibraryService) Stats(_ context.Context) (*domain.CorpusStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.CorpusStats{Documents: len(m.documents)}, nil
}
