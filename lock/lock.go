// Package lock is a best-effort advisory lock used to narrow the race window
// around a2u_create. The platform's one-incomplete-payment rule remains the
// final arbiter; this lock is an optimization, never a correctness guarantee.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pi-gateway/logging"
)

// Locker acquires short-lived advisory locks. Acquire returns a release
// function and whether the lock was obtained; implementations must never block
// the caller on backend failures.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool)
}

// Noop grants every acquisition. Used when no Redis backend is configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration) (func(), bool) {
	return func() {}, true
}

// RedisLocker backs the lock with SET NX + TTL.
type RedisLocker struct {
	client *redis.Client
}

// NewRedis connects a locker to the given Redis address.
func NewRedis(addr string) *RedisLocker {
	return &RedisLocker{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Acquire takes the lock if it is free. Backend errors are treated as an
// acquired lock so a Redis outage cannot take down payment creation.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		logging.Warn("advisory lock unavailable, proceeding without it",
			zap.String("key", key), zap.Error(err))
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}
	release := func() {
		// Only delete our own token; an expired lock may have been re-taken.
		current, err := l.client.Get(context.Background(), key).Result()
		if err == nil && current == token {
			l.client.Del(context.Background(), key)
		}
	}
	return release, true
}
