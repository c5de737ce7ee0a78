package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"StaySafe/storage/redis"
)

const (
	actionPublishedPrefix = "action:published"

	publishedTTL = 24 * time.Hour
)

// TryMarkActionPublished 发布前用 SETNX 占位：一个队列项在 TTL 内只发一次。
// 返回 false 表示之前某轮 drain 已经发过（比如进程在 CompleteItem 前崩了）。
func TryMarkActionPublished(ctx context.Context, itemID int64, ttl time.Duration) (bool, error) {
	key := redis.Key(actionPublishedPrefix, strconv.FormatInt(itemID, 10))
	if ttl <= 0 {
		ttl = publishedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, "published", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark action as published: %w", err)
	}
	return result, nil
}

// UnmarkActionPublished 发布失败时撤掉占位，让下一轮 drain 重发。
func UnmarkActionPublished(ctx context.Context, itemID int64) error {
	key := redis.Key(actionPublishedPrefix, strconv.FormatInt(itemID, 10))
	return redis.Client().Del(ctx, key).Err()
}
