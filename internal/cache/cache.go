package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recircle-service/internal/config"

	"go.uber.org/zap"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache defines the interface for cache operations. Values are opaque bytes
// so that process-local and shared backends behave the same way.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value for ttl. A ttl <= 0 removes the key instead.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPattern deletes all keys matching a pattern (for cache invalidation)
	DeleteByPattern(ctx context.Context, pattern Pattern) (int, error)
	Close() error
}

// NewCache creates the cache selected by cfg. A Redis cache is returned only
// when USE_REDIS is set and the server answers a ping; otherwise the
// in-memory cache is used.
func NewCache(cfg *config.Config, logger *zap.Logger) Cache {
	defaultTTL := TTL(cfg.CacheTTL)

	if !cfg.UseRedis {
		logger.Info("Using in-memory cache", zap.Duration("default_ttl", defaultTTL))
		return NewMemoryCache(WithDefaultTTL(defaultTTL))
	}

	redisCache, err := NewRedisCache(cfg, logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis, using in-memory cache",
			zap.String("host", cfg.RedisHost),
			zap.String("port", cfg.RedisPort),
			zap.Error(err),
		)
		return NewMemoryCache(WithDefaultTTL(defaultTTL))
	}
	return redisCache
}

// MemoryCache adapts TTLCache to the Cache interface.
type MemoryCache struct {
	store *TTLCache
}

// NewMemoryCache creates a process-local cache.
func NewMemoryCache(opts ...Option) *MemoryCache {
	return &MemoryCache{store: NewTTLCache(opts...)}
}

// Store exposes the underlying TTL cache, mainly for stats.
func (c *MemoryCache) Store() *TTLCache {
	return c.store
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, ok := c.store.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return value.([]byte), nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	c.store.Set(key, stored, ttl)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.store.Invalidate(key)
	return nil
}

func (c *MemoryCache) DeleteByPattern(ctx context.Context, pattern Pattern) (int, error) {
	return c.store.InvalidatePattern(pattern), nil
}

func (c *MemoryCache) Close() error {
	c.store.Close()
	return nil
}

// GetJSON reads key and decodes it into dest.
func GetJSON(ctx context.Context, cache Cache, key string, dest interface{}) error {
	data, err := cache.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, cache Cache, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return cache.Set(ctx, key, data, ttl)
}

// TTL returns a time.Duration from seconds
func TTL(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
