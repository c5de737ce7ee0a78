package queue

// 生产投递通道：把离线动作发到 actions.topic 交换机，
// routing key 按动作类型分流。MessageID 直接由 item ID 派生，
// 重复投递时消费端拿到相同的幂等键。

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"StaySafe/internal/cache"
	"StaySafe/internal/model"
	"StaySafe/pkg/logger"
	"StaySafe/storage/mq"
)

const actionsExchange = "actions.topic"

type MQDeliverer struct{}

func NewMQDeliverer() *MQDeliverer {
	return &MQDeliverer{}
}

func (d *MQDeliverer) Deliver(ctx context.Context, guestID int64, item model.OfflineQueueItem) error {
	// 发布前占位，崩溃在 CompleteItem 之前导致的重发在这里拦住。
	// Redis 不可用时照常发布，消费端按 message_id 兜底去重。
	first, err := cache.TryMarkActionPublished(ctx, item.ID, 0)
	if err != nil {
		logger.Logger.Warn("Published-mark check failed, publishing anyway",
			zap.Int64("item_id", item.ID),
			zap.Error(err),
		)
	} else if !first {
		logger.Logger.Info("Action already published in a previous pass, skipping",
			zap.Int64("guest_id", guestID),
			zap.Int64("item_id", item.ID),
		)
		return nil
	}

	msg := model.ActionMessage{
		MessageID:  fmt.Sprintf("action_%d", item.ID),
		GuestID:    guestID,
		ItemID:     item.ID,
		Type:       item.Type,
		Payload:    item.Payload,
		EnqueuedAt: item.CreatedAt,
	}

	routingKey := fmt.Sprintf("action.%s", item.Type)

	if err := mq.PublishMessage(actionsExchange, routingKey, msg); err != nil {
		if unmarkErr := cache.UnmarkActionPublished(ctx, item.ID); unmarkErr != nil {
			logger.Logger.Warn("Failed to unmark published action",
				zap.Int64("item_id", item.ID),
				zap.Error(unmarkErr),
			)
		}

		// 连接层故障按硬失败上抛，本轮 drain 整体中止
		if errors.Is(err, mq.ErrUnavailable) {
			return fmt.Errorf("%w: %v", ErrTransportDown, err)
		}
		return fmt.Errorf("failed to publish action %d: %w", item.ID, err)
	}

	return nil
}
