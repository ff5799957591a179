// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"sync"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/ports/adapter"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var (
	_ adapter.Locker = (*RedisLocker)(nil)
	_ adapter.Locker = (*MemoryLocker)(nil)
)

const (
	lockAttempts = 5
	lockBackoff  = 50 * time.Millisecond
)

type RedisLocker struct {
	cli *redis.Client
}

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{cli: c.cli}
}

// TryLock retries briefly, then reports the key as held.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	var lastErr error
	for i := 0; i < lockAttempts; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		switch {
		case err != nil:
			lastErr = err
		case ok:
			return token, nil
		default:
			lastErr = nil
		}
		if err := sleepCtx(ctx, lockBackoff); err != nil {
			return "", err
		}
	}
	if lastErr != nil {
		return "", domain.WrapOp("lock", "", domain.ErrRemoteUnavailable)
	}
	return "", domain.ErrSubscriberLocked
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{key}, token).Result()
	return err
}

// MemoryLocker is the single-process fallback when Redis is not configured.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memLock
	now   func() time.Time
	tries int
}

type memLock struct {
	token   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memLock), now: time.Now, tries: lockAttempts}
}

func (l *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	for i := 0; i < l.tries; i++ {
		if token, ok := l.acquire(key, ttl); ok {
			return token, nil
		}
		if err := sleepCtx(ctx, lockBackoff); err != nil {
			return "", err
		}
	}
	return "", domain.ErrSubscriberLocked
}

func (l *MemoryLocker) acquire(key string, ttl time.Duration) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return "", false
	}
	token := uuid.NewString()
	l.held[key] = memLock{token: token, expires: now.Add(ttl)}
	return token, true
}

func (l *MemoryLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
