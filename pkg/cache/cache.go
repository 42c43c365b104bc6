package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

// encode turns a value into the stored representation. Strings and byte
// slices are stored as-is, everything else as JSON.
func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return append([]byte(nil), v...), nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cache encode: %w", err)
		}
		return data, nil
	}
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		*d = append([]byte(nil), data...)
		return nil
	default:
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("cache decode: %w", err)
		}
		return nil
	}
}

// GetOrLoad returns the cached value for key or calls load, caches its
// result for ttl and returns it. Cache errors other than a miss are ignored
// so a broken cache never blocks the caller.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	var out T
	if err := c.Get(ctx, key, &out); err == nil {
		return out, true, nil
	}

	out, err := load(ctx)
	if err != nil {
		return out, false, err
	}
	_ = c.Set(ctx, key, out, ttl)
	return out, false, nil
}

const lockPollInterval = 50 * time.Millisecond

// GetOrLoadOnce is GetOrLoad guarded by a cache lock on key, so callers
// sharing c compute a missing value once. A caller that loses the lock polls
// the cache for up to wait and then loads on its own.
func GetOrLoadOnce[T any](ctx context.Context, c Service, key string, ttl, wait time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	var out T
	if err := c.Get(ctx, key, &out); err == nil {
		return out, true, nil
	}

	lockKey := GenerateKey("lock", key)
	locked, err := c.TryLock(ctx, lockKey, wait)
	if err == nil && !locked {
		if v, ok, werr := waitForValue[T](ctx, c, key, wait); werr != nil || ok {
			return v, ok, werr
		}
	}
	if locked {
		defer func() { _ = c.Unlock(context.WithoutCancel(ctx), lockKey) }()
	}
	return GetOrLoad(ctx, c, key, ttl, load)
}

func waitForValue[T any](ctx context.Context, c Service, key string, wait time.Duration) (T, bool, error) {
	var out T
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	tick := time.NewTicker(lockPollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return out, false, ctx.Err()
		case <-deadline.C:
			return out, false, nil
		case <-tick.C:
			if err := c.Get(ctx, key, &out); err == nil {
				return out, true, nil
			}
		}
	}
}
