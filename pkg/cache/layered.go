package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: Redis). Without a
// Redis layer it degrades to the memory cache alone.
type LayeredCache struct {
	memCache   *MemoryCache
	redisCache *RedisCache
	memTTL     time.Duration
}

// NewLayeredCache creates a layered cache with memory and Redis. redisCache
// may be nil.
func NewLayeredCache(redisCache *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		MemoryTTL:     time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		memCache:   NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		redisCache: redisCache,
		memTTL:     cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	// Write-through: Redis first, then memory
	if lc.redisCache != nil {
		if err := lc.redisCache.Set(ctx, key, data, expiration); err != nil {
			return err
		}
	}
	return lc.memCache.Set(ctx, key, data, lc.l1TTL(expiration))
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	// L1: Try memory first
	var data []byte
	if err := lc.memCache.Get(ctx, key, &data); err == nil {
		return decode(data, dest)
	}
	if lc.redisCache == nil {
		return ErrCacheMiss
	}

	// L2: Try Redis
	if err := lc.redisCache.Get(ctx, key, &data); err != nil {
		return err
	}

	// Store in memory for next time
	_ = lc.memCache.Set(ctx, key, data, lc.memTTL)
	return decode(data, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	if lc.redisCache == nil {
		return nil
	}
	return lc.redisCache.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	err := lc.memCache.DeleteByPattern(ctx, pattern)
	if lc.redisCache == nil {
		return err
	}
	return errors.Join(err, lc.redisCache.DeleteByPattern(ctx, pattern))
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.memCache.Exists(ctx, keys...); ok || lc.redisCache == nil {
		return ok, nil
	}
	return lc.redisCache.Exists(ctx, keys...)
}

// TryLock and Unlock go to the shared layer so several instances agree.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if lc.redisCache == nil {
		return lc.memCache.TryLock(ctx, key, ttl)
	}
	return lc.redisCache.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	if lc.redisCache == nil {
		return lc.memCache.Unlock(ctx, key)
	}
	return lc.redisCache.Unlock(ctx, key)
}

func (lc *LayeredCache) l1TTL(expiration time.Duration) time.Duration {
	if lc.redisCache == nil {
		return expiration
	}
	if expiration <= 0 || expiration > lc.memTTL {
		return lc.memTTL
	}
	return expiration
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	if lc.redisCache == nil {
		return nil
	}
	return lc.redisCache.Close()
}
