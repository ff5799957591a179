package adapter

import (
	"context"
	"time"
)

// Locker serialises operations on one key (a subscriber id).
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// LoginLimiter caps panel login attempts per key within a window.
type LoginLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
