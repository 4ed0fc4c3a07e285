package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/adapters/driven/storage/memory"
	memvec "github.com/custodia-labs/docent/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docent/internal/chunker"
	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockRegistry implements driven.NormaliserRegistry for testing.
// It treats raw content as plain text and uses the URI as title.
type mockRegistry struct {
	normaliseErr error
}

func (m *mockRegistry) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if m.normaliseErr != nil {
		return nil, m.normaliseErr
	}
	title := raw.Title
	if title == "" {
		title = raw.URI
	}
	return &domain.Document{
		URI:     raw.URI,
		Title:   title,
		Content: string(raw.Content),
	}, nil
}

func (m *mockRegistry) Register(_ driven.Normaliser) {}

func (m *mockRegistry) SupportedMIMETypes() []string { return []string{"text/plain"} }

// mockSource implements driven.DocumentSource for testing.
type mockSource struct {
	docs        []domain.RawDocument
	sourceErrs  []error
	validateErr error
	watchCh     chan domain.RawDocumentChange
	canWatch    bool
	closed      bool
}

func (m *mockSource) Type() string { return "mock" }

func (m *mockSource) Capabilities() driven.SourceCapabilities {
	return driven.SourceCapabilities{SupportsWatch: m.canWatch}
}

func (m *mockSource) Validate(_ context.Context) error { return m.validateErr }

func (m *mockSource) Fetch(_ context.Context) (<-chan domain.RawDocument, <-chan error) {
	docsCh := make(chan domain.RawDocument)
	errsCh := make(chan error)
	go func() {
		defer close(docsCh)
		defer close(errsCh)
		for i := 0; i < len(m.docs) || i < len(m.sourceErrs); i++ {
			if i < len(m.docs) {
				docsCh <- m.docs[i]
			}
			if i < len(m.sourceErrs) && m.sourceErrs[i] != nil {
				errsCh <- m.sourceErrs[i]
			}
		}
	}()
	return docsCh, errsCh
}

func (m *mockSource) Watch(_ context.Context) (<-chan domain.RawDocumentChange, error) {
	if !m.canWatch {
		return nil, errors.New("watch unsupported")
	}
	return m.watchCh, nil
}

func (m *mockSource) Close() error {
	m.closed = true
	return nil
}

// countingEmbedder wraps mockEmbedder and records batch sizes.
// When failTimes is set, only the first failTimes calls return embedErr.
type countingEmbedder struct {
	mu         sync.Mutex
	batchSizes []int
	dims       int
	embedErr   error
	failTimes  int
}

func (m *countingEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, m.dims), nil
}

func (m *countingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchSizes = append(m.batchSizes, len(texts))
	call := len(m.batchSizes)
	m.mu.Unlock()
	if m.embedErr != nil && (m.failTimes == 0 || call <= m.failTimes) {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = make([]float32, m.dims)
	}
	return result, nil
}

func (m *countingEmbedder) Dimensions() int { return m.dims }

func (m *countingEmbedder) ModelName() string { return "mock-embed" }

func (m *countingEmbedder) Ping(_ context.Context) error { return nil }

func (m *countingEmbedder) Close() error { return nil }

// --- Test helpers ---

type ingestFixture struct {
	source   *mockSource
	registry *mockRegistry
	embedder *countingEmbedder
	vectors  *memvec.Store
	docStore *memory.DocumentStore
	settings domain.AppSettings
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	settings := testSettings()
	settings.Ingest.Concurrency = 2
	settings.Ingest.BatchSize = 4

	return &ingestFixture{
		source:   &mockSource{},
		registry: &mockRegistry{},
		embedder: &countingEmbedder{dims: 8},
		vectors:  memvec.NewStore(),
		docStore: memory.NewDocumentStore(),
		settings: settings,
	}
}

func (f *ingestFixture) orchestrator(t *testing.T) *IngestOrchestrator {
	t.Helper()
	c, err := chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(10))
	require.NoError(t, err)

	resolve := func(_ string) (driven.DocumentSource, error) { return f.source, nil }
	return NewIngestOrchestrator(resolve, f.registry, c, f.embedder, f.vectors, f.docStore, f.settings)
}

func rawDoc(uri, text string) domain.RawDocument {
	return domain.RawDocument{
		URI:      uri,
		Content:  []byte(text),
		MIMEType: "text/plain",
	}
}

// longText produces enough words for several 50-token chunks.
func longText(words int) string {
	text := ""
	for i := 0; i < words; i++ {
		text += fmt.Sprintf("word%d ", i)
	}
	return text
}

// --- Tests ---

func TestIngestOrchestrator_Ingest_SingleDocument(t *testing.T) {
	f := newIngestFixture(t)
	f.source.docs = []domain.RawDocument{rawDoc("file:///notes.txt", "A short note about nothing much.")}
	ctx := context.Background()

	results, err := f.orchestrator(t).Ingest(ctx, "/notes")

	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	assert.NoError(t, r.Err)
	assert.NotEmpty(t, r.DocumentID)
	assert.Equal(t, "file:///notes.txt", r.URI)
	assert.False(t, r.Replaced)
	assert.Greater(t, r.Chunks, 0)
	assert.Greater(t, r.Tokens, 0)

	// Document, chunks and vectors all landed.
	doc, err := f.docStore.GetDocument(ctx, r.DocumentID)
	require.NoError(t, err)
	assert.False(t, doc.CreatedAt.IsZero())

	chunks, err := f.docStore.GetChunks(ctx, r.DocumentID)
	require.NoError(t, err)
	assert.Len(t, chunks, r.Chunks)
	for _, c := range chunks {
		assert.Equal(t, r.DocumentID, c.DocumentID)
	}

	count, err := f.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Chunks, count)

	assert.True(t, f.source.closed)
}

func TestIngestOrchestrator_Ingest_MultipleDocuments(t *testing.T) {
	f := newIngestFixture(t)
	f.source.docs = []domain.RawDocument{
		rawDoc("file:///a.txt", longText(200)),
		rawDoc("file:///b.txt", longText(120)),
		rawDoc("file:///c.txt", "short"),
	}
	ctx := context.Background()

	results, err := f.orchestrator(t).Ingest(ctx, "/docs")

	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}

	docs, err := f.docStore.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, docs)
}

func TestIngestOrchestrator_Ingest_PerDocumentFailureDoesNotAbort(t *testing.T) {
	f := newIngestFixture(t)
	f.source.docs = []domain.RawDocument{
		rawDoc("file:///good.txt", "fine content"),
		rawDoc("file:///huge.txt", longText(500)),
		rawDoc("file:///also-good.txt", "more content"),
	}
	f.settings.Ingest.MaxFileBytes = 64
	ctx := context.Background()

	results, err := f.orchestrator(t).Ingest(ctx, "/docs")

	require.NoError(t, err)
	require.Len(t, results, 3)

	var failed, succeeded int
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.ErrorIs(t, r.Err, domain.ErrInvalidInput)
			assert.Equal(t, "file:///huge.txt", r.URI)
		} else {
			succeeded++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, succeeded)
}

func TestIngestOrchestrator_Ingest_SourceErrorsReported(t *testing.T) {
	f := newIngestFixture(t)
	f.source.docs = []domain.RawDocument{rawDoc("file:///ok.txt", "fine")}
	f.source.sourceErrs = []error{errors.New("permission denied: /secret.txt")}
	ctx := context.Background()

	results, err := f.orchestrator(t).Ingest(ctx, "/docs")

	require.NoError(t, err)
	require.Len(t, results, 2)

	var errCount int
	for _, r := range results {
		if r.Err != nil {
			errCount++
			assert.Contains(t, r.Err.Error(), "permission denied")
		}
	}
	assert.Equal(t, 1, errCount)
}

func TestIngestOrchestrator_Ingest_ValidateFailure(t *testing.T) {
	f := newIngestFixture(t)
	f.source.validateErr = errors.New("no such directory")
	ctx := context.Background()

	_, err := f.orchestrator(t).Ingest(ctx, "/missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestIngestOrchestrator_Ingest_ReplacesExistingURI(t *testing.T) {
	f := newIngestFixture(t)
	f.source.docs = []domain.RawDocument{rawDoc("file:///doc.txt", longText(100))}
	ctx := context.Background()
	o := f.orchestrator(t)

	first, err := o.Ingest(ctx, "/docs")
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.NoError(t, first[0].Err)

	// Re-ingest the same URI with different content.
	f.source.docs = []domain.RawDocument{rawDoc("file:///doc.txt", "replacement content")}
	second, err := o.Ingest(ctx, "/docs")
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.NoError(t, second[0].Err)
	assert.True(t, second[0].Replaced)
	assert.NotEqual(t, first[0].DocumentID, second[0].DocumentID)

	// Exactly one document remains, with the new content's chunks only.
	docs, err := f.docStore.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, docs)

	_, err = f.docStore.GetDocument(ctx, first[0].DocumentID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := f.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, second[0].Chunks, count)
}

func TestIngestOrchestrator_Ingest_EmbeddingFailureFailsDocument(t *testing.T) {
	f := newIngestFixture(t)
	f.source.docs = []domain.RawDocument{rawDoc("file:///doc.txt", "some content")}
	f.embedder.embedErr = errors.New("quota exceeded")
	ctx := context.Background()

	results, err := f.orchestrator(t).Ingest(ctx, "/docs")

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.ErrorIs(t, results[0].Err, domain.ErrEmbeddingUnavailable)

	// The batch exhausted its retry budget before failing the document.
	assert.Len(t, f.embedder.batchSizes, 3)

	// Nothing was persisted for the failed document.
	docs, err := f.docStore.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Zero(t, docs)

	count, err := f.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngestOrchestrator_Ingest_EmbeddingRetriesThenSucceeds(t *testing.T) {
	f := newIngestFixture(t)
	f.source.docs = []domain.RawDocument{rawDoc("file:///doc.txt", "some content")}
	f.embedder.embedErr = errors.New("transient provider blip")
	f.embedder.failTimes = 1
	ctx := context.Background()

	results, err := f.orchestrator(t).Ingest(ctx, "/docs")

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Len(t, f.embedder.batchSizes, 2)

	count, err := f.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, results[0].Chunks, count)
}

func TestIngestOrchestrator_Ingest_BatchesRespectBatchSize(t *testing.T) {
	f := newIngestFixture(t)
	f.settings.Ingest.BatchSize = 3
	f.source.docs = []domain.RawDocument{rawDoc("file:///big.txt", longText(400))}
	ctx := context.Background()

	results, err := f.orchestrator(t).Ingest(ctx, "/docs")

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Greater(t, results[0].Chunks, 3)

	total := 0
	for _, size := range f.embedder.batchSizes {
		assert.LessOrEqual(t, size, 3)
		total += size
	}
	assert.Equal(t, results[0].Chunks, total)
}

func TestIngestOrchestrator_Ingest_EmptyDocumentRejected(t *testing.T) {
	f := newIngestFixture(t)
	f.source.docs = []domain.RawDocument{rawDoc("file:///empty.txt", "   \n\t ")}
	ctx := context.Background()

	results, err := f.orchestrator(t).Ingest(ctx, "/docs")

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.ErrorIs(t, results[0].Err, domain.ErrInvalidInput)
}

func TestIngestOrchestrator_IngestDocument(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	result, err := f.orchestrator(t).IngestDocument(ctx, rawDoc("upload://readme.md", "Uploaded content here."))

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.DocumentID)
	assert.Greater(t, result.Chunks, 0)
}

func TestIngestOrchestrator_IngestDocument_FailureReturnsError(t *testing.T) {
	f := newIngestFixture(t)
	f.registry.normaliseErr = domain.ErrUnsupportedType
	ctx := context.Background()

	result, err := f.orchestrator(t).IngestDocument(ctx, rawDoc("upload://file.bin", "binary"))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestIngestOrchestrator_Watch_UnsupportedSource(t *testing.T) {
	f := newIngestFixture(t)
	f.source.canWatch = false
	ctx := context.Background()

	err := f.orchestrator(t).Watch(ctx, "/docs")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestIngestOrchestrator_Watch_UpsertAndDelete(t *testing.T) {
	f := newIngestFixture(t)
	f.source.canWatch = true
	f.source.watchCh = make(chan domain.RawDocumentChange)
	ctx, cancel := context.WithCancel(context.Background())
	o := f.orchestrator(t)

	done := make(chan error, 1)
	go func() { done <- o.Watch(ctx, "/docs") }()

	// A new file appears.
	f.source.watchCh <- domain.RawDocumentChange{
		Type:     domain.ChangeUpserted,
		Document: rawDoc("file:///watched.txt", "watched content"),
	}

	require.Eventually(t, func() bool {
		_, err := f.docStore.GetDocumentByURI(ctx, "file:///watched.txt")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	// The file is deleted.
	f.source.watchCh <- domain.RawDocumentChange{
		Type:     domain.ChangeDeleted,
		Document: domain.RawDocument{URI: "file:///watched.txt"},
	}

	require.Eventually(t, func() bool {
		_, err := f.docStore.GetDocumentByURI(context.Background(), "file:///watched.txt")
		return errors.Is(err, domain.ErrNotFound)
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop on cancellation")
	}
}

func TestIngestOrchestrator_Watch_DeleteUnknownURIIgnored(t *testing.T) {
	f := newIngestFixture(t)
	f.source.canWatch = true
	f.source.watchCh = make(chan domain.RawDocumentChange)
	ctx, cancel := context.WithCancel(context.Background())
	o := f.orchestrator(t)

	done := make(chan error, 1)
	go func() { done <- o.Watch(ctx, "/docs") }()

	f.source.watchCh <- domain.RawDocumentChange{
		Type:     domain.ChangeDeleted,
		Document: domain.RawDocument{URI: "file:///never-ingested.txt"},
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop on cancellation")
	}
}
