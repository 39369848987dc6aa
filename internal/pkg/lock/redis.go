package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lease is held by another process.
var ErrNotAcquired = fmt.Errorf("lock not acquired")

// Locker serializes short critical sections across processes.
type Locker interface {
	// Acquire takes a lease on the key, retrying until acquired or the
	// context expires. The returned release function is safe to call once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// RedisLocker implements Locker with a SET NX PX lease.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a RedisLocker.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire takes the lease, polling with a short backoff while it is held
// elsewhere. Release only deletes the key if the token still matches, so an
// expired lease taken over by another holder is never released by us.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ErrNotAcquired
		case <-time.After(50 * time.Millisecond):
		}
	}

	release := func() {
		// Compare-and-delete so we never release someone else's lease.
		script := redis.NewScript(`
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			end
			return 0
		`)
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = script.Run(releaseCtx, l.client, []string{key}, token).Err()
	}
	return release, nil
}
