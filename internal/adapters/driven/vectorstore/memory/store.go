// Package memory provides an in-memory vector store with exact
// brute-force cosine search. Suitable for tests and small corpora;
// nothing survives the process.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

type entry struct {
	documentID string
	vector     []float32
	norm       float64
}

// Store is an in-memory implementation of driven.VectorStore.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewStore creates a new in-memory vector store.
func NewStore() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Upsert inserts or replaces vectors keyed by chunk ID.
func (s *Store) Upsert(_ context.Context, entries []driven.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		s.entries[e.ChunkID] = entry{
			documentID: e.DocumentID,
			vector:     vec,
			norm:       norm(vec),
		}
	}
	return nil
}

// Search returns the topK nearest chunks by cosine similarity,
// ordered by descending similarity.
func (s *Store) Search(_ context.Context, vector []float32, topK int) ([]driven.VectorHit, error) {
	if topK <= 0 || len(vector) == 0 {
		return nil, nil
	}

	qnorm := norm(vector)
	if qnorm == 0 {
		return nil, nil
	}

	s.mu.RLock()
	hits := make([]driven.VectorHit, 0, len(s.entries))
	for chunkID, e := range s.entries {
		if len(e.vector) != len(vector) || e.norm == 0 {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    chunkID,
			Similarity: dot(vector, e.vector) / (qnorm * e.norm),
		})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DeleteByDocument removes every vector belonging to a document.
func (s *Store) DeleteByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chunkID, e := range s.entries {
		if e.documentID == documentID {
			delete(s.entries, chunkID)
		}
	}
	return nil
}

// Count returns the number of stored vectors.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Reset removes all vectors.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
	return nil
}

// Ping reports readiness. Always healthy for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close releases resources. No-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
