package queue

// 离线队列的 drain：FIFO 单遍尝试，成功移除、失败原位保留，
// at-least-once，由消费端按 item ID 幂等。没有待投项或已有
// drain 在途时是 no-op，跨进程再加一层 Redis 锁。

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"StaySafe/internal/model"
	"StaySafe/internal/state"
	"StaySafe/pkg/metrics"
)

// ErrTransportDown 投递通道整体不可用，本轮 drain 按硬失败收尾。
var ErrTransportDown = errors.New("delivery transport unavailable")

// Deliverer 单项投递出口。
type Deliverer interface {
	Deliver(ctx context.Context, guestID int64, item model.OfflineQueueItem) error
}

// Locker 跨进程的 drain 互斥，nil 表示只做进程内互斥。
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Drainer struct {
	deliverer Deliverer
	locker    Locker
	logger    *zap.Logger
	lockTTL   time.Duration
}

func NewDrainer(deliverer Deliverer, locker Locker, logger *zap.Logger) *Drainer {
	return &Drainer{
		deliverer: deliverer,
		locker:    locker,
		logger:    logger,
		lockTTL:   2 * time.Minute,
	}
}

// Drain 对单个 guest 的队列做一遍 FIFO 投递。
// 单项失败不中断后续项；通道级失败（ErrTransportDown）中止本遍
// 并把同步状态标成 error，留待下一轮或用户手动触发时重试。
func (d *Drainer) Drain(ctx context.Context, c *state.Container) model.DrainResponse {
	guestID := c.GuestID()

	if d.locker != nil {
		lockKey := lockKeyFor(guestID)
		acquired, err := d.locker.TryLock(ctx, lockKey, d.lockTTL)
		if err != nil {
			d.logger.Warn("Drain lock check failed, proceeding without cross-process lock",
				zap.Int64("guest_id", guestID),
				zap.Error(err),
			)
		} else if !acquired {
			return d.statusOnly(c)
		} else {
			defer func() {
				if err := d.locker.Unlock(ctx, lockKey); err != nil {
					d.logger.Warn("Failed to release drain lock",
						zap.Int64("guest_id", guestID),
						zap.Error(err),
					)
				}
			}()
		}
	}

	items, ok := c.StartDrain(ctx)
	if !ok {
		return d.statusOnly(c)
	}

	var delivered, failed int
	hardFailure := false

	for _, item := range items {
		if err := d.deliverer.Deliver(ctx, guestID, item); err != nil {
			if errors.Is(err, ErrTransportDown) {
				d.logger.Error("Delivery transport down, aborting drain pass",
					zap.Int64("guest_id", guestID),
					zap.Error(err),
				)
				hardFailure = true
				break
			}

			failed++
			c.FailItem(ctx, item.ID)
			d.logger.Warn("Queue item delivery failed, will retry on next drain",
				zap.Int64("guest_id", guestID),
				zap.Int64("item_id", item.ID),
				zap.String("type", item.Type),
				zap.Error(err),
			)
			continue
		}

		delivered++
		c.CompleteItem(ctx, item.ID)
	}

	status := c.FinishDrain(ctx, hardFailure)
	metrics.RecordDrain(ctx, int64(delivered), int64(failed))

	d.logger.Info("Queue drain pass completed",
		zap.Int64("guest_id", guestID),
		zap.Int("attempted", len(items)),
		zap.Int("delivered", delivered),
		zap.Int("failed", failed),
		zap.String("sync_status", string(status)),
	)

	return model.DrainResponse{
		Attempted:  len(items),
		Delivered:  delivered,
		Remaining:  len(items) - delivered,
		SyncStatus: string(status),
	}
}

func (d *Drainer) statusOnly(c *state.Container) model.DrainResponse {
	snap := c.Snapshot()
	return model.DrainResponse{
		Remaining:  snap.PendingQueueItems(),
		SyncStatus: string(snap.SyncStatus),
	}
}

func lockKeyFor(guestID int64) string {
	return "drain:" + strconv.FormatInt(guestID, 10)
}
