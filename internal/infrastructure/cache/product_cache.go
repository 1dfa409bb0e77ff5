package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// RedisProductCache is a read-through product cache shared by all replicas.
// Concurrent misses for the same key inside one process are collapsed into
// a single load. Redis failures degrade to loading from the database.
type RedisProductCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	group     singleflight.Group
	logger    *zap.Logger
}

// NewRedisProductCache creates a product cache on a shared Redis client
func NewRedisProductCache(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisProductCache {
	return &RedisProductCache{
		client:    client,
		keyPrefix: keyPrefix + "product:",
		ttl:       ttl,
		logger:    logger,
	}
}

// Fetch returns the cached product or loads and stores it
func (c *RedisProductCache) Fetch(
	ctx context.Context,
	key string,
	load func(context.Context) (*catalogapp.ProductResponse, error),
) (*catalogapp.ProductResponse, error) {
	redisKey := c.keyPrefix + key

	raw, err := c.client.Get(ctx, redisKey).Bytes()
	switch {
	case err == nil:
		var cached catalogapp.ProductResponse
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return &cached, nil
		}
		c.logger.Warn("Discarding undecodable product cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Product cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		product, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(product); err == nil {
			if err := c.client.Set(ctx, redisKey, data, c.ttl).Err(); err != nil {
				c.logger.Warn("Product cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return copyProduct(v.(*catalogapp.ProductResponse)), nil
}

// Invalidate deletes keys
func (c *RedisProductCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = c.keyPrefix + k
		c.group.Forget(k)
	}
	if err := c.client.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate product cache: %w", err)
	}
	return nil
}

type productEntry struct {
	product   catalogapp.ProductResponse
	expiresAt time.Time
}

// InMemoryProductCache is the single-instance product cache used when
// Redis is disabled
type InMemoryProductCache struct {
	mu      sync.RWMutex
	entries map[string]productEntry
	ttl     time.Duration
	group   singleflight.Group
	now     func() time.Time
}

// NewInMemoryProductCache creates an in-memory product cache
func NewInMemoryProductCache(ttl time.Duration) *InMemoryProductCache {
	return &InMemoryProductCache{
		entries: make(map[string]productEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Fetch returns the cached product or loads and stores it
func (c *InMemoryProductCache) Fetch(
	ctx context.Context,
	key string,
	load func(context.Context) (*catalogapp.ProductResponse, error),
) (*catalogapp.ProductResponse, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return copyProduct(&e.product), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		product, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = productEntry{product: *product, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return copyProduct(v.(*catalogapp.ProductResponse)), nil
}

// Invalidate drops keys
func (c *InMemoryProductCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.group.Forget(k)
	}
	return nil
}

// Len returns the number of cached entries, expired ones included
func (c *InMemoryProductCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// copyProduct keeps callers from mutating cached or shared values
func copyProduct(p *catalogapp.ProductResponse) *catalogapp.ProductResponse {
	cp := *p
	if p.CategoryID != nil {
		id := *p.CategoryID
		cp.CategoryID = &id
	}
	return &cp
}

var (
	_ catalogapp.ProductCache = (*RedisProductCache)(nil)
	_ catalogapp.ProductCache = (*InMemoryProductCache)(nil)
)
