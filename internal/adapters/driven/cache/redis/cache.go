// Package redis provides an embedding cache backed by Redis.
// Vectors are stored as little-endian float32 blobs with a TTL so long
// corpora don't pin Redis memory forever.
package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// DefaultTTL is how long cached embeddings live when none is configured.
const DefaultTTL = 24 * time.Hour

// Config holds configuration for the Redis embedding cache.
type Config struct {
	// Addr is the Redis address, host:port (required).
	Addr string

	// Password is the Redis password, may be empty.
	Password string

	// DB is the Redis database number.
	DB int

	// TTL is the cache entry lifetime (default: 24h).
	TTL time.Duration
}

// Cache stores embeddings in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a new Redis embedding cache and verifies connectivity.
func NewCache(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: address is required")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	return &Cache{client: client, ttl: cfg.TTL}, nil
}

// Get returns the cached vector for the key.
func (c *Cache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	vector, err := bytesToVector(data)
	if err != nil {
		// Treat undecodable entries as misses so a format change
		// never wedges the cache.
		return nil, false, nil
	}
	return vector, true, nil
}

// Set stores a vector under the key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, vector []float32) error {
	if err := c.client.Set(ctx, key, vectorToBytes(vector), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// vectorToBytes encodes a vector as little-endian float32 bytes.
func vectorToBytes(vector []float32) []byte {
	data := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return data
}

// bytesToVector decodes little-endian float32 bytes.
func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector payload length %d", len(data))
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector, nil
}
