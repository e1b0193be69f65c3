package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Locker hands out short lived per-key locks with SET NX PX.
type Locker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewLocker(rdb *redis.Client, prefix string, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Acquire returns a release func, or ErrLockFailed if someone else holds key.
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s is held: %w", fullKey, common.ErrLockFailed)
	}

	release := func(ctx context.Context) error {
		deleted, err := releaseScript.Run(ctx, l.rdb, []string{fullKey}, token).Int64()
		if err != nil {
			return fmt.Errorf("release lock %s: %w", fullKey, err)
		}
		if deleted == 0 {
			return fmt.Errorf("lock %s expired before release", fullKey)
		}
		return nil
	}
	return release, nil
}
