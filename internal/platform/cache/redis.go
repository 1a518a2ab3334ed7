package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned by WithLock when another holder owns the key.
var ErrLocked = errors.New("platform/cache: lock held elsewhere")

// New creates a Redis client and verifies the connection.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// Locker hands out short lived Redis locks for singleton work.
type Locker struct {
	client *redislock.Client
}

// NewLocker wraps client. A nil client yields a Locker that always runs fn unguarded.
func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return &Locker{}
	}
	return &Locker{client: redislock.New(client)}
}

// WithLock runs fn while holding key for at most ttl. It returns ErrLocked without running fn
// when the key is already held.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrLocked
	}
	if err != nil {
		return fmt.Errorf("platform/cache: obtain %s: %w", key, err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()

	ctx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()
	return fn(ctx)
}
