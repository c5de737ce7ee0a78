package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"StaySafe/internal/cache"
	"StaySafe/internal/model"
	"StaySafe/pkg/errors"
	"StaySafe/pkg/logger"
	"StaySafe/storage/database"
	"StaySafe/storage/mq"
)

// worker 侧消费者：消费 drain 投出的动作消息，落一条通知决定记录。
// 实际的投递通道（短信/微信/邮件）不在核心内，这里只记录"决定发起通知"。

// StartNotifyContactsConsumer 消费打卡升级动作
func StartNotifyContactsConsumer(ctx context.Context) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.QueueNotifyContacts,
		ConsumerTag:   "notify_contacts_consumer",
		PrefetchCount: 10,
		Handler:       actionHandler(ctx, model.ActionNotifyContacts),
	})
}

// StartFenceAlertConsumer 消费围栏事件动作
func StartFenceAlertConsumer(ctx context.Context) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.QueueFenceAlerts,
		ConsumerTag:   "fence_alert_consumer",
		PrefetchCount: 10,
		Handler:       actionHandler(ctx, model.ActionFenceAlert),
	})
}

// StartStateSyncConsumer 消费状态同步动作
func StartStateSyncConsumer(ctx context.Context) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.QueueStateSync,
		ConsumerTag:   "state_sync_consumer",
		PrefetchCount: 20,
		Handler:       actionHandler(ctx, model.ActionStateSync),
	})
}

func actionHandler(ctx context.Context, category string) mq.MessageHandler {
	return func(body []byte) error {
		var msg model.ActionMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal action message: %w", err)
		}

		// 【幂等性检查】使用 SETNX 原子性地检查并标记消息正在处理
		processing, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
			// 检查失败时继续处理，item_id 唯一索引兜底防止重复落库
		} else if !processing {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
				zap.Int64("item_id", msg.ItemID),
			)
			return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
		}

		if err := recordDecision(ctx, category, msg); err != nil {
			// 处理失败，取消标记，允许重试
			if unmarkErr := cache.UnmarkMessageProcessing(ctx, msg.MessageID); unmarkErr != nil {
				logger.Logger.Warn("Failed to unmark message processing",
					zap.String("message_id", msg.MessageID),
					zap.Error(unmarkErr),
				)
			}
			return fmt.Errorf("failed to record notification decision: %w", err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}

		return nil
	}
}

// recordDecision 落库通知决定，item_id 冲突时静默跳过（重复投递）。
func recordDecision(ctx context.Context, category string, msg model.ActionMessage) error {
	message := ""
	if raw, ok := msg.Payload["message"].(string); ok {
		message = raw
	}

	decision := model.NotificationDecision{
		GuestID:   msg.GuestID,
		ItemID:    msg.ItemID,
		Category:  category,
		Message:   message,
		DecidedAt: time.Now().UnixMilli(),
	}

	err := database.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}},
			DoNothing: true,
		}).
		Create(&decision).Error
	if err != nil {
		return err
	}

	logger.Logger.Info("Notification decision recorded",
		zap.Int64("guest_id", msg.GuestID),
		zap.Int64("item_id", msg.ItemID),
		zap.String("category", category),
	)

	return nil
}

// StartAllConsumers 启动所有消费者（worker 启动时调用）
func StartAllConsumers(ctx context.Context) {
	var wg sync.WaitGroup

	consumers := []struct {
		name     string
		consumer func(context.Context) error
	}{
		{"notify_contacts", StartNotifyContactsConsumer},
		{"fence_alert", StartFenceAlertConsumer},
		{"state_sync", StartStateSyncConsumer},
	}

	for _, c := range consumers {
		wg.Add(1)
		go func(name string, consumer func(context.Context) error) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer",
				zap.String("consumer_name", name),
			)

			if err := consumer(ctx); err != nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("consumer_name", name),
					zap.Error(err),
				)
			}
		}(c.name, c.consumer)
	}

	wg.Wait()

	logger.Logger.Info("All consumers stopped")
}
