package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// RedisCache is a Redis-backed evaluation cache with TTL, for sharing
// memoized evaluations across engine instances.
//
// Redis data structure:
//   - Key: "{prefix}:{cache key}"
//   - Type: String, JSON-encoded Evaluation
//   - Expiry: TTL (0 = no expiry)
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// NewRedisCache creates a Redis-backed cache.
//
// Args:
//
//	redisURL: Redis connection URL, e.g. "redis://localhost:6379"
//	ttl: entry lifetime (0 = no expiry)
//	keyPrefix: prefix for Redis keys, e.g. "forecastkit:evals"
func NewRedisCache(redisURL string, ttl time.Duration, keyPrefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	if keyPrefix == "" {
		keyPrefix = "forecastkit:evals"
	}
	return &RedisCache{
		client:    redis.NewClient(opts),
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}, nil
}

func (c *RedisCache) redisKey(key string) string {
	return c.keyPrefix + ":" + key
}

// Get returns the cached evaluation for the key.
func (c *RedisCache) Get(ctx context.Context, key string) (*forecastkit.Evaluation, bool, error) {
	data, err := c.client.Get(ctx, c.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var eval forecastkit.Evaluation
	if err := json.Unmarshal([]byte(data), &eval); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached evaluation: %w", err)
	}
	return &eval, true, nil
}

// Put stores an evaluation under the key with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, key string, eval *forecastkit.Evaluation) error {
	data, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("failed to encode evaluation: %w", err)
	}
	if err := c.client.Set(ctx, c.redisKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
