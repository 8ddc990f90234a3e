package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned by TryWithLock when another holder owns the key.
var ErrLocked = errors.New("lock: already held")

const (
	defaultTTL     = 30 * time.Second
	defaultBackoff = 50 * time.Millisecond
)

// releaseScript deletes the key only while it still carries our token, so a holder whose TTL
// lapsed cannot free a lock someone else has since taken.
var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Locker provides a Redis-backed distributed lock. Checkout uses it to keep two identical
// submissions from running at once.
type Locker struct {
	R            redis.UniversalClient
	RetryBackoff time.Duration
}

// WithLock waits for key and runs fn while holding it. It gives up with ctx.Err() when ctx ends
// first.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if err := l.check(fn); err != nil {
		return err
	}
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	ticker := time.NewTicker(backoff)
	defer ticker.Stop()
	for {
		token, err := l.acquire(ctx, key, ttl)
		if err == nil {
			defer l.release(key, token)
			return fn(ctx)
		}
		if !errors.Is(err, ErrLocked) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// TryWithLock runs fn only if key is free, returning ErrLocked otherwise.
func (l Locker) TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if err := l.check(fn); err != nil {
		return err
	}
	token, err := l.acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer l.release(key, token)
	return fn(ctx)
}

func (l Locker) acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("lock: acquire %s: %w", key, err)
	}
	if !ok {
		return "", ErrLocked
	}
	return token, nil
}

func (l Locker) check(fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	return nil
}

// release runs detached from the caller's context so a cancelled request still frees the key.
func (l Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.R, []string{key}, token).Err()
}
