// Package qdrant provides a vector store adapter for a Qdrant server
// over its HTTP API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "docent_chunks"
	DefaultTimeout    = 30 * time.Second
)

// pointNamespace derives stable Qdrant point UUIDs from chunk IDs, so
// re-ingesting a chunk overwrites its point instead of duplicating it.
var pointNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Config holds configuration for the Qdrant vector store.
type Config struct {
	// URL is the Qdrant server base URL (default: http://localhost:6333).
	URL string

	// APIKey authenticates against a secured server, may be empty.
	APIKey string

	// Collection is the collection name (default: docent_chunks).
	Collection string

	// Dimensions is the vector size, required to create the collection.
	Dimensions int

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Store talks to a Qdrant server.
type Store struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
	dimensions int
}

// qdrantResponse is the generic Qdrant response envelope.
type qdrantResponse struct {
	Status json.RawMessage `json:"status"`
	Result json.RawMessage `json:"result"`
}

// NewStore creates a Qdrant store and ensures the collection exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant: vector dimensions are required")
	}

	s := &Store{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureCollection creates the collection when it does not exist yet.
func (s *Store) ensureCollection(ctx context.Context) error {
	var exists struct {
		Exists bool `json:"exists"`
	}
	if err := s.call(ctx, http.MethodGet,
		fmt.Sprintf("/collections/%s/exists", s.collection), nil, &exists); err != nil {
		return fmt.Errorf("qdrant: check collection: %w", err)
	}
	if exists.Exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimensions,
			"distance": "Cosine",
		},
	}
	if err := s.call(ctx, http.MethodPut, "/collections/"+s.collection, body, nil); err != nil {
		return fmt.Errorf("qdrant: create collection: %w", err)
	}
	return nil
}

// Upsert inserts or replaces vectors. Point IDs derive from chunk IDs,
// so the operation is idempotent per chunk.
func (s *Store) Upsert(ctx context.Context, entries []driven.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		points[i] = map[string]any{
			"id":     uuid.NewSHA1(pointNamespace, []byte(e.ChunkID)).String(),
			"vector": e.Vector,
			"payload": map[string]any{
				"chunk_id":    e.ChunkID,
				"document_id": e.DocumentID,
			},
		}
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", s.collection)
	if err := s.call(ctx, http.MethodPut, path, map[string]any{"points": points}, nil); err != nil {
		return fmt.Errorf("qdrant: upsert points: %w", err)
	}
	return nil
}

// Search returns the topK nearest points by cosine similarity.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]driven.VectorHit, error) {
	if topK <= 0 || len(vector) == 0 {
		return nil, nil
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}

	var result []struct {
		Score   float64 `json:"score"`
		Payload struct {
			ChunkID string `json:"chunk_id"`
		} `json:"payload"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", s.collection)
	if err := s.call(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(result))
	for _, r := range result {
		if r.Payload.ChunkID == "" {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    r.Payload.ChunkID,
			Similarity: r.Score,
		})
	}
	return hits, nil
}

// DeleteByDocument removes every point whose payload carries the
// document ID.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": documentID}},
			},
		},
	}

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection)
	if err := s.call(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("qdrant: delete points: %w", err)
	}
	return nil
}

// Count returns the number of stored points.
func (s *Store) Count(ctx context.Context) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	path := fmt.Sprintf("/collections/%s/points/count", s.collection)
	if err := s.call(ctx, http.MethodPost, path, map[string]any{"exact": true}, &result); err != nil {
		return 0, fmt.Errorf("qdrant: count points: %w", err)
	}
	return result.Count, nil
}

// Reset drops and recreates the collection.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.call(ctx, http.MethodDelete, "/collections/"+s.collection, nil, nil); err != nil {
		return fmt.Errorf("qdrant: drop collection: %w", err)
	}
	return s.ensureCollection(ctx)
}

// Ping verifies the server answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.call(ctx, http.MethodGet, "/collections", nil, nil); err != nil {
		return fmt.Errorf("qdrant: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// call performs one API request and decodes the result envelope.
func (s *Store) call(ctx context.Context, method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if result == nil {
		return nil
	}
	var envelope qdrantResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
