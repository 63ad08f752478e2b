// Package locks serializes mutations of a single order. Concurrent
// add-to-cart or quantity updates against the same order would otherwise
// interleave their read-modify-write of the items list; stock counters do
// not need this because the ledger's conditional updates are atomic.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lock could not be acquired before the
// caller's deadline.
var ErrLockTimeout = errors.New("timed out acquiring order lock")

// OrderLocker grants exclusive access to one order's document. The returned
// release func must be called when the mutation is done.
type OrderLocker interface {
	Acquire(ctx context.Context, orderID string) (release func(), err error)
}

// RedisLocker implements OrderLocker with SET NX + TTL keyed by order id.
// The TTL bounds how long a crashed process can hold a lock.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait}
}

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock re-acquired by another request is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, orderID string) (func(), error) {
	key := "order:lock:" + orderID
	token := uuid.NewString()

	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, l.client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// MemoryLocker is the in-process fallback used when Redis is not configured,
// and in tests. Correct only for a single process, which matches the
// deployment model anyway.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, orderID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[orderID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[orderID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
