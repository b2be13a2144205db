package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Backend with a Redis read-through cache. Saves write to the
// base backend first and then refresh the cached copy.
type Cache struct {
	base  Backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base Backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
}

func (c *Cache) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	if data, ok := c.loadFromCache(ctx, key); ok {
		return data, true, nil
	}

	data, ok, err := c.base.Load(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		c.store(ctx, key, data)
	}
	return data, ok, nil
}

func (c *Cache) Save(ctx context.Context, key string, data []byte) error {
	if err := c.base.Save(ctx, key, data); err != nil {
		c.evict(ctx, key)
		return err
	}
	c.store(ctx, key, data)
	return nil
}

func (c *Cache) loadFromCache(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, cacheKey(key)).Err()
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) store(ctx context.Context, key string, data []byte) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	_ = c.redis.Set(ctx, cacheKey(key), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, cacheKey(key)).Err()
}

func cacheKey(key string) string {
	return "cache:" + RedisKeyPrefix + key
}
