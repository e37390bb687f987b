// Package cache stores search responses in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"catalog-assistant/internal/rag"
)

// DefaultTTL is used when a Config does not set one.
const DefaultTTL = 10 * time.Minute

const defaultPrefix = "ca:search:"

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// commander is the part of *redis.Client the cache uses.
type commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisCache implements rag.ResponseCache. Entries expire after the TTL; keys
// carry the snapshot generation, so reloads never need to invalidate.
type RedisCache struct {
	client commander
	ttl    time.Duration
	prefix string
}

var _ rag.ResponseCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisCache(client, cfg), nil
}

func newRedisCache(client commander, cfg Config) *RedisCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}
}

// Get implements rag.ResponseCache.
func (c *RedisCache) Get(ctx context.Context, key string) (rag.RankedResponse, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return rag.RankedResponse{}, false, nil
	}
	if err != nil {
		return rag.RankedResponse{}, false, fmt.Errorf("redis get: %w", err)
	}

	var resp rag.RankedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return rag.RankedResponse{}, false, fmt.Errorf("failed to decode cached response: %w", err)
	}
	return resp, true, nil
}

// Set implements rag.ResponseCache.
func (c *RedisCache) Set(ctx context.Context, key string, resp rag.RankedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks the connection for the health endpoint.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
