package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/health-risk-server/internal/domain"
)

// DefaultMemoryCacheSize bounds the in-process tier when no size is configured.
const DefaultMemoryCacheSize = 1024

// CachedPrediction wraps a cached response body with its lifetime
type CachedPrediction struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (c CachedPrediction) expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// RedisCache keeps prediction responses in Redis so replicas share them.
type RedisCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewRedisCache connects to the Redis instance named by config.RedisURL
func NewRedisCache(config domain.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// Get returns the cached body for key. A miss is not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get prediction cache: %w", err)
	}

	var cached CachedPrediction
	if err := json.Unmarshal(val, &cached); err != nil {
		// corrupted entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}
	if cached.expired(time.Now()) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}
	return cached.Data, true, nil
}

// Set stores data under key. A zero ttl uses the configured default.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	now := time.Now()
	payload, err := json.Marshal(CachedPrediction{
		Data:      data,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal prediction cache data: %w", err)
	}
	return c.redis.Set(ctx, key, payload, ttl).Err()
}

// Ping checks if Redis connection is alive
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.redis.Close()
}

// TieredCache checks an in-process LRU before falling back to an optional
// shared cache. Shared hits are promoted into the LRU.
type TieredCache struct {
	memory     *lru.Cache[string, CachedPrediction]
	shared     Cache
	defaultTTL time.Duration
	logger     *logrus.Logger
	now        func() time.Time
}

// NewTieredCache creates a tiered cache. shared may be nil.
func NewTieredCache(size int, defaultTTL time.Duration, shared Cache, logger *logrus.Logger) (*TieredCache, error) {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	memory, err := lru.New[string, CachedPrediction](size)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	return &TieredCache{
		memory:     memory,
		shared:     shared,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Get looks in memory first, then in the shared tier.
func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if entry, ok := c.memory.Get(key); ok {
		if !entry.expired(c.now()) {
			return entry.Data, true, nil
		}
		c.memory.Remove(key)
	}

	if c.shared == nil {
		return nil, false, nil
	}

	data, ok, err := c.shared.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	now := c.now()
	c.memory.Add(key, CachedPrediction{Data: data, CachedAt: now, ExpiresAt: now.Add(c.defaultTTL)})
	return data, true, nil
}

// Set writes to both tiers. A shared tier failure is logged and swallowed.
func (c *TieredCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.now()
	c.memory.Add(key, CachedPrediction{Data: data, CachedAt: now, ExpiresAt: now.Add(ttl)})

	if c.shared != nil {
		if err := c.shared.Set(ctx, key, data, ttl); err != nil && c.logger != nil {
			c.logger.WithError(err).WithField("cache_key", key).Warn("Failed to write shared prediction cache")
		}
	}
	return nil
}

// Len returns the number of entries held in memory.
func (c *TieredCache) Len() int {
	return c.memory.Len()
}

// cacheKey hashes the request body under the given prefix.
func cacheKey(prefix string, body []byte) string {
	hash := sha256.Sum256(body)
	return fmt.Sprintf("%s:prediction:%x", prefix, hash[:8])
}
