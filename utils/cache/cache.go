package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist (or has expired).
var ErrNotFound = errors.New("key not found in cache")

// Cache is the injected cache abstraction used for memoization (for
// example enrollment-existence checks in the reconciler read path). It is
// a constructor dependency everywhere, never ambient state: production
// wires RedisCache, tests wire MemoryCache or nil.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}
