package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nodal/application/ports"
)

var _ ports.EmbeddingCache = (*RedisCache)(nil)

// RedisCache keeps embedding vectors in Redis with a TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis-backed embedding cache
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached vector
func (c *RedisCache) Get(ctx context.Context, model, text string) ([]float64, bool, error) {
	data, err := c.client.Get(ctx, embeddingKey(model, text)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding: %w", err)
	}

	var vector []float64
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return vector, true, nil
}

// Set stores the vector
func (c *RedisCache) Set(ctx context.Context, model, text string, vector []float64) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	if err := c.client.Set(ctx, embeddingKey(model, text), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set embedding: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
