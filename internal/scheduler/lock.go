package scheduler

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// TickLock keeps replicas from dispatching the same tick.
type TickLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// LocalLock is used when only one process runs; the dispatcher's own guard
// is enough.
type LocalLock struct{}

func (LocalLock) TryLock(context.Context) (bool, error) { return true, nil }
func (LocalLock) Unlock(context.Context) error          { return nil }

const DefaultLockKey = "calendard:dispatch_lock"

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisTickLock is a SET NX PX lock. The TTL frees the lock if its holder
// dies mid-tick.
type RedisTickLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

func NewRedisTickLock(client *redis.Client, key string, ttl time.Duration) *RedisTickLock {
	if key == "" {
		key = DefaultLockKey
	}
	return &RedisTickLock{
		client: client,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

func (l *RedisTickLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
}

func (l *RedisTickLock) Unlock(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
