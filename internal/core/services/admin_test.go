package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/adapters/driven/storage/memory"
	memvec "github.com/custodia-labs/docent/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// configuredSettings returns settings with every provider configured.
func configuredSettings() domain.AppSettings {
	settings := testSettings()
	settings.Embedding.APIKey = "embed-key"
	settings.LLM.APIKey = "llm-key"
	settings.Rerank.APIKey = "rerank-key"
	return settings
}

func componentByName(t *testing.T, status *domain.HealthStatus, name string) domain.ComponentHealth {
	t.Helper()
	for _, c := range status.Components {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("component %q not found in %+v", name, status.Components)
	return domain.ComponentHealth{}
}

func TestAdminService_Health_AllHealthy(t *testing.T) {
	svc := NewAdminService(
		&mockEmbedder{},
		memvec.NewStore(),
		&mockReranker{},
		&mockLLM{},
		memory.NewDocumentStore(),
		configuredSettings(),
	)

	status, err := svc.Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)
	for _, name := range []string{"embedding", "vector_store", "llm", "rerank"} {
		c := componentByName(t, status, name)
		assert.True(t, c.Configured, name)
		assert.True(t, c.Healthy, name)
		assert.Empty(t, c.Detail, name)
	}
}

func TestAdminService_Health_UnreachableProviderDegrades(t *testing.T) {
	svc := NewAdminService(
		&mockEmbedder{pingErr: errors.New("connection refused")},
		memvec.NewStore(),
		&mockReranker{},
		&mockLLM{},
		memory.NewDocumentStore(),
		configuredSettings(),
	)

	status, err := svc.Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "degraded", status.Status)

	embedding := componentByName(t, status, "embedding")
	assert.True(t, embedding.Configured)
	assert.False(t, embedding.Healthy)
	assert.Contains(t, embedding.Detail, "connection refused")

	// Other components are unaffected.
	assert.True(t, componentByName(t, status, "llm").Healthy)
}

func TestAdminService_Health_UnconfiguredRerankerDoesNotDegrade(t *testing.T) {
	settings := configuredSettings()
	settings.Rerank.APIKey = ""

	svc := NewAdminService(
		&mockEmbedder{},
		memvec.NewStore(),
		nil,
		&mockLLM{},
		memory.NewDocumentStore(),
		settings,
	)

	status, err := svc.Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)

	rerank := componentByName(t, status, "rerank")
	assert.False(t, rerank.Configured)
	assert.False(t, rerank.Healthy)
}

func TestAdminService_Reset_ClearsEverything(t *testing.T) {
	docStore := memory.NewDocumentStore()
	vectors := memvec.NewStore()
	ctx := context.Background()

	require.NoError(t, docStore.SaveDocument(ctx, &domain.Document{ID: "doc-1", URI: "file:///a"}))
	require.NoError(t, docStore.SaveChunks(ctx, []domain.Chunk{{ID: "c1", DocumentID: "doc-1", Text: "x"}}))
	require.NoError(t, vectors.Upsert(ctx, []driven.VectorEntry{{ChunkID: "c1", DocumentID: "doc-1", Vector: []float32{1}}}))

	svc := NewAdminService(&mockEmbedder{}, vectors, nil, &mockLLM{}, docStore, configuredSettings())
	require.NoError(t, svc.Reset(ctx))

	docs, err := docStore.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Zero(t, docs)

	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
