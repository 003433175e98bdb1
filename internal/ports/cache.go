package ports

import (
	"context"
	"time"
)

// Cache is a best-effort key-value store for derived data such as status snapshots
// and relay cursors. Callers must tolerate misses.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// SetIfAbsent stores value only when key has no entry and reports whether it did.
	SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}
