package cache

import (
	"context"
	"time"

	"StaySafe/storage/redis"
)

// 通过 SetNX 实现的跨进程互斥，drain 循环和手动 drain 共用，
// 防止两个实例同时清一个 guest 的队列。

const lockPrefix = "lock"

// RedisLocker 满足 queue.Locker。
type RedisLocker struct{}

func NewRedisLocker() *RedisLocker {
	return &RedisLocker{}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return TryLock(ctx, key, ttl)
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	return Unlock(ctx, key)
}

func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	fullkey := redis.Key(lockPrefix, key)

	result, err := redis.Client().SetNX(ctx, fullkey, 1, ttl).Result()

	if err != nil {
		return false, err
	}

	return result, err
}

func Unlock(ctx context.Context, key string) error {
	fullkey := redis.Key(lockPrefix, key)

	return redis.Client().Del(ctx, fullkey).Err()
}
