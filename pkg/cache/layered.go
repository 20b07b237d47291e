package cache

import (
	"context"
	"time"
)

// LayeredCache puts a small in-process cache in front of Redis. Reads
// hit memory first; hits from Redis are promoted. Writes go through to
// both layers so restarts only lose the memory tier.
type LayeredCache struct {
	local  *MemoryCache
	shared *RedisCache
}

// NewLayeredCache creates a layered cache over the given Redis backend.
func NewLayeredCache(redisCache *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{MemoryMaxSize: 1000}
	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		local:  NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		shared: redisCache,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := lc.shared.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, value, expiration)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest any) error {
	if err := lc.local.Get(ctx, key, dest); err == nil {
		return nil
	}

	var raw []byte
	if err := lc.shared.Get(ctx, key, &raw); err != nil {
		return err
	}
	// promote before decoding so the next read stays local
	_ = lc.local.Set(ctx, key, raw, 0)
	return decodeValue(raw, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.shared.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = lc.local.DeleteByPattern(ctx, pattern)
	return lc.shared.DeleteByPattern(ctx, pattern)
}

// Exists asks Redis, the authoritative layer.
func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.shared.Exists(ctx, keys...)
}

func (lc *LayeredCache) Increment(ctx context.Context, key string) (int64, error) {
	return lc.shared.Increment(ctx, key)
}

func (lc *LayeredCache) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	return lc.shared.Expire(ctx, key, expiration)
}

func (lc *LayeredCache) MSet(ctx context.Context, values map[string]any, expiration time.Duration) error {
	return lc.shared.MSet(ctx, values, expiration)
}

func (lc *LayeredCache) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	return lc.shared.MGet(ctx, keys...)
}

// TryLock always locks in Redis, so the lock holds across instances.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.shared.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.shared.Unlock(ctx, key)
}

// Close shuts down both layers.
func (lc *LayeredCache) Close() error {
	_ = lc.local.Close()
	return lc.shared.Close()
}
