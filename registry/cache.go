package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tinywideclouds/go-apns/dispatch"
)

// CacheClient defines the subset of cache commands the decorator needs.
type CacheClient interface {
	// Get returns the value or an error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// CachedRegistry is a decorator that adds read-aside caching to any
// Registry whose source of truth is slow.
type CachedRegistry struct {
	realStore dispatch.Registry
	cache     CacheClient
	ttl       time.Duration
}

// NewCachedRegistry creates the decorator.
func NewCachedRegistry(realStore dispatch.Registry, cache CacheClient, ttl time.Duration) *CachedRegistry {
	return &CachedRegistry{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// Tokens serves cache hits without touching the inner registry; misses fall
// through and populate the cache. Caching is an optimization, not a
// transaction, so a failed Set is ignored.
func (r *CachedRegistry) Tokens(ctx context.Context, recipient string) ([]string, error) {
	key := r.cacheKey(recipient)

	var cached []string
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	fresh, err := r.realStore.Tokens(ctx, recipient)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, key, fresh, r.ttl)
	return fresh, nil
}

// Register writes through to the source of truth and invalidates the cache.
func (r *CachedRegistry) Register(ctx context.Context, recipient, deviceToken string) error {
	if err := r.realStore.Register(ctx, recipient, deviceToken); err != nil {
		return err
	}
	return r.invalidate(ctx, recipient)
}

// Unregister writes through and invalidates. Even when the backing write
// succeeds, the cache entry must go so that a dead token stops receiving
// notifications immediately.
func (r *CachedRegistry) Unregister(ctx context.Context, recipient, deviceToken string) error {
	if err := r.realStore.Unregister(ctx, recipient, deviceToken); err != nil {
		return err
	}
	return r.invalidate(ctx, recipient)
}

func (r *CachedRegistry) invalidate(ctx context.Context, recipient string) error {
	return r.cache.Del(ctx, r.cacheKey(recipient))
}

func (r *CachedRegistry) cacheKey(recipient string) string {
	return fmt.Sprintf("apns:tokens:cache:%s", recipient)
}

// RedisCache wraps go-redis to satisfy CacheClient, storing values as JSON.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to Redis and fails fast if it is unreachable.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCache{rdb: rdb}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err // redis.Nil signals a miss, matching the interface expectation
	}
	return json.Unmarshal(val, dest)
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, bytes, ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
