package cli

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// Test mocks shared by the command tests.

type mockQueryService struct {
	answer *domain.Answer
	err    error
	gotReq domain.QueryRequest
}

func (m *mockQueryService) Query(_ context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	m.gotReq = req
	return m.answer, m.err
}

type mockIngestService struct {
	results []domain.IngestResult
	err     error
}

func (m *mockIngestService) Ingest(context.Context, string) ([]domain.IngestResult, error) {
	return m.results, m.err
}

func (m *mockIngestService) IngestDocument(context.Context, domain.RawDocument) (*domain.IngestResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockIngestService) Watch(context.Context, string) error {
	return m.err
}

type mockLibraryService struct {
	docs      []domain.Document
	details   *driving.DocumentDetails
	content   string
	stats     *domain.CorpusStats
	err       error
	deletedID string
}

func (m *mockLibraryService) List(context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockLibraryService) Get(context.Context, string) (*domain.Document, error) {
	if m.err != nil || len(m.docs) == 0 {
		return nil, m.err
	}
	return &m.docs[0], nil
}

func (m *mockLibraryService) GetContent(context.Context, string) (string, error) {
	return m.content, m.err
}

func (m *mockLibraryService) GetDetails(context.Context, string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

func (m *mockLibraryService) Delete(_ context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func (m *mockLibraryService) Stats(context.Context) (*domain.CorpusStats, error) {
	return m.stats, m.err
}

type mockAdminService struct {
	health *domain.HealthStatus
	err    error
	reset  bool
}

func (m *mockAdminService) Health(context.Context) (*domain.HealthStatus, error) {
	return m.health, m.err
}

func (m *mockAdminService) Reset(context.Context) error {
	m.reset = true
	return m.err
}

type mockSettingsService struct {
	settings *domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.settings == nil {
		defaults := domain.DefaultAppSettings()
		return &defaults, m.err
	}
	return m.settings, m.err
}

func (m *mockSettingsService) Save(*domain.AppSettings) error { return m.err }

func (m *mockSettingsService) SetEmbeddingProvider(domain.AIProvider, string, string) error {
	return m.err
}

func (m *mockSettingsService) SetLLMProvider(domain.AIProvider, string, string) error {
	return m.err
}

func (m *mockSettingsService) SetRerankProvider(domain.AIProvider, string, string) error {
	return m.err
}

func (m *mockSettingsService) Validate() error { return m.err }

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.err }
func (m *mockSettingsService) ValidateLLMConfig() error       { return m.err }
func (m *mockSettingsService) ValidateRerankConfig() error    { return m.err }

// setupTestServices installs mock services and returns a cleanup that
// restores the previous wiring.
func setupTestServices() func() {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	SetServices(Services{
		Query: &mockQueryService{answer: &domain.Answer{
			Answer:     "Paris [1].",
			Sources:    []domain.Source{{LocalID: 1, Document: "geo.md", Score: 0.91}},
			HasContext: true,
		}},
		Ingest: &mockIngestService{results: []domain.IngestResult{
			{DocumentID: "doc-1", URI: "file:///a.md", Title: "Test Document 1", Chunks: 3, Tokens: 150},
		}},
		Library: &mockLibraryService{
			docs: []domain.Document{
				{ID: "doc-1", Title: "Test Document 1", URI: "file:///a.md", TokenCount: 150, CreatedAt: now, UpdatedAt: now},
			},
			details: &driving.DocumentDetails{
				ID: "doc-1", Title: "Test Document 1", URI: "file:///a.md",
				ChunkCount: 3, TokenCount: 150, CreatedAt: now, UpdatedAt: now,
			},
			content: "full document content",
			stats: &domain.CorpusStats{
				Documents: 1, Chunks: 3, Vectors: 3,
				EmbeddingModel: "text-embedding-004", LLMModel: "gemini-1.5-flash",
			},
		},
		Admin: &mockAdminService{health: &domain.HealthStatus{
			Status: "ok",
			Components: []domain.ComponentHealth{
				{Name: "embedding", Configured: true, Healthy: true},
			},
		}},
		Settings: &mockSettingsService{},
	})

	return func() {
		SetServices(Services{})
	}
}

// executeCommand runs the root command with args and captures output.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
