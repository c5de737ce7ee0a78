package store

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"StaySafe/storage/redis"
)

// RedisFast fast 层的 Redis 实现：每个 guest 的完整聚合快照
// 存成一条 string 记录，键为 <prefix>:guest:state:<id>。
type RedisFast struct{}

func NewRedisFast() *RedisFast {
	return &RedisFast{}
}

func stateKey(guestID int64) string {
	return redis.Key("guest", "state", fmt.Sprintf("%d", guestID))
}

func (f *RedisFast) Write(ctx context.Context, guestID int64, snapshot []byte) error {
	// 快照不设 TTL，它就是 reload 后的权威状态
	if err := redis.Client().Set(ctx, stateKey(guestID), snapshot, 0).Err(); err != nil {
		return fmt.Errorf("failed to write fast-tier snapshot: %w", err)
	}
	return nil
}

func (f *RedisFast) Read(ctx context.Context, guestID int64) ([]byte, error) {
	data, err := redis.Client().Get(ctx, stateKey(guestID)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fast-tier snapshot: %w", err)
	}
	return data, nil
}
