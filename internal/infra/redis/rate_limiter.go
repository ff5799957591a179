package redis

import (
	"context"
	"sync"
	"time"

	"vpn-subscription/internal/domain/ports/adapter"
)

var (
	_ adapter.LoginLimiter = (*RateLimiter)(nil)
	_ adapter.LoginLimiter = (*MemoryRateLimiter)(nil)
)

// RateLimiter is a fixed-window counter: INCR, and EXPIRE on the first hit.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// MemoryRateLimiter keeps the same fixed windows in process memory.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count int
	reset time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{windows: make(map[string]*window), now: time.Now}
}

func (m *MemoryRateLimiter) SetClock(now func() time.Time) { m.now = now }

func (m *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, win time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(win)}
		m.windows[key] = w
	}
	w.count++
	return w.count <= limit, nil
}
