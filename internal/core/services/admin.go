package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
)

// Ensure AdminService implements the interface.
var _ driving.AdminService = (*AdminService)(nil)

const healthPingTimeout = 5 * time.Second

// AdminService exposes operational commands: health checks and corpus reset.
type AdminService struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	reranker driven.Reranker
	llm      driven.LLMService
	docStore driven.DocumentStore
	settings domain.AppSettings
}

// NewAdminService creates a new admin service. The reranker may be nil
// when not configured.
func NewAdminService(
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	reranker driven.Reranker,
	llm driven.LLMService,
	docStore driven.DocumentStore,
	settings domain.AppSettings,
) *AdminService {
	return &AdminService{
		embedder: embedder,
		vectors:  vectors,
		reranker: reranker,
		llm:      llm,
		docStore: docStore,
		settings: settings,
	}
}

// pinger is the common surface of every provider client.
type pinger interface {
	Ping(ctx context.Context) error
}

// Health pings every configured provider in parallel and aggregates
// the results. Status is "ok" only when all configured components
// answered.
func (s *AdminService) Health(ctx context.Context) (*domain.HealthStatus, error) {
	type probe struct {
		name       string
		configured bool
		target     pinger
	}

	probes := []probe{
		{name: "embedding", configured: s.settings.Embedding.IsConfigured(), target: s.embedder},
		{name: "vector_store", configured: true, target: s.vectors},
		{name: "llm", configured: s.settings.LLM.IsConfigured(), target: s.llm},
	}
	rerankProbe := probe{name: "rerank", configured: s.settings.Rerank.IsConfigured()}
	if s.reranker != nil {
		rerankProbe.target = s.reranker
	}
	probes = append(probes, rerankProbe)

	components := make([]domain.ComponentHealth, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		components[i] = domain.ComponentHealth{Name: p.name, Configured: p.configured}
		if !p.configured || p.target == nil {
			continue
		}

		wg.Add(1)
		go func(i int, p probe) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
			defer cancel()

			if err := p.target.Ping(pctx); err != nil {
				components[i].Detail = err.Error()
				return
			}
			components[i].Healthy = true
		}(i, p)
	}
	wg.Wait()

	status := "ok"
	for _, c := range components {
		if c.Configured && !c.Healthy {
			status = "degraded"
			break
		}
	}

	return &domain.HealthStatus{Status: status, Components: components}, nil
}

// Reset deletes every vector, chunk, and document. Irreversible.
func (s *AdminService) Reset(ctx context.Context) error {
	logger.Section("Reset")

	vctx, cancel := callCtx(ctx, s.settings.VectorStore.Timeout)
	err := s.vectors.Reset(vctx)
	cancel()
	if err != nil {
		return err
	}

	if err := s.docStore.Reset(ctx); err != nil {
		return err
	}

	logger.Info("Corpus cleared")
	return nil
}
