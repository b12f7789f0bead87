package locker

import (
	"context"
	"time"

	"github.com/prizelab/backend/pkg/xcontext"
	"github.com/prizelab/backend/pkg/xredis"
)

// RedisLocker backs the lock with a conditional write and a lease, so a
// crashed holder cannot leave a key locked forever and multiple service
// instances agree on ownership.
type RedisLocker struct {
	redisClient xredis.Client
	lease       time.Duration
}

func NewRedisLocker(redisClient xredis.Client, lease time.Duration) *RedisLocker {
	if lease <= 0 {
		lease = time.Minute
	}

	return &RedisLocker{redisClient: redisClient, lease: lease}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) bool {
	ok, err := l.redisClient.SetNX(ctx, l.redisKey(key), "1", l.lease)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot acquire lock %s: %v", key, err)
		return false
	}

	return ok
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) {
	if err := l.redisClient.Del(ctx, l.redisKey(key)); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot release lock %s: %v", key, err)
	}
}

func (l *RedisLocker) redisKey(key string) string {
	return "lock:" + key
}
