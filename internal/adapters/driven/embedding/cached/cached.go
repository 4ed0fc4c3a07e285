// Package cached decorates an embedding service with a cache.
// Repeated queries and re-ingested chunks skip the provider round trip.
// Cache failures are logged and fall through to the provider; the cache
// is an optimisation, never a dependency.
package cached

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Intent labels keep query and document embeddings apart in the cache:
// asymmetric models project the same text differently per task.
const (
	intentQuery    = "query"
	intentDocument = "document"
)

// EmbeddingService wraps an embedding provider with a cache.
type EmbeddingService struct {
	inner driven.EmbeddingService
	cache driven.EmbeddingCache
}

// Wrap decorates inner with the cache. A nil cache returns inner unchanged.
func Wrap(inner driven.EmbeddingService, cache driven.EmbeddingCache) driven.EmbeddingService {
	if cache == nil {
		return inner
	}
	return &EmbeddingService{inner: inner, cache: cache}
}

// EmbedQuery returns the cached query embedding or asks the provider.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := s.key(intentQuery, text)
	if vector, ok := s.get(ctx, key); ok {
		return vector, nil
	}

	vector, err := s.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	s.put(ctx, key, vector)
	return vector, nil
}

// EmbedDocuments embeds a batch, consulting the cache per text and
// sending only the misses to the provider in one call.
func (s *EmbeddingService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		keys[i] = s.key(intentDocument, text)
		if vector, ok := s.get(ctx, keys[i]); ok {
			vectors[i] = vector
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := s.inner.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		vectors[i] = fresh[j]
		s.put(ctx, keys[i], fresh[j])
	}
	return vectors, nil
}

// key hashes (model, intent, text) into a stable cache key.
func (s *EmbeddingService) key(intent, text string) string {
	h := sha256.New()
	h.Write([]byte(s.inner.ModelName()))
	h.Write([]byte{'|'})
	h.Write([]byte(intent))
	h.Write([]byte{'|'})
	h.Write([]byte(text))
	return "emb:" + hex.EncodeToString(h.Sum(nil))
}

func (s *EmbeddingService) get(ctx context.Context, key string) ([]float32, bool) {
	vector, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Debug("Embedding cache read failed: %v", err)
		return nil, false
	}
	return vector, ok
}

func (s *EmbeddingService) put(ctx context.Context, key string, vector []float32) {
	if err := s.cache.Set(ctx, key, vector); err != nil {
		logger.Debug("Embedding cache write failed: %v", err)
	}
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping validates the underlying provider is reachable.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases the provider and the cache.
func (s *EmbeddingService) Close() error {
	err := s.inner.Close()
	if cerr := s.cache.Close(); err == nil {
		err = cerr
	}
	return err
}
