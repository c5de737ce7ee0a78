package model

// QueueItemStatus 离线队列项状态，只允许 pending→processing→{done|failed}，
// failed 会被回退为 pending 重试，不会被丢弃。
type QueueItemStatus string

const (
	QueueStatusPending    QueueItemStatus = "pending"
	QueueStatusProcessing QueueItemStatus = "processing"
	QueueStatusDone       QueueItemStatus = "done"
	QueueStatusFailed     QueueItemStatus = "failed"
)

// 离线队列动作类型
const (
	ActionNotifyContacts = "notify_contacts" // 打卡升级后通知联系人
	ActionFenceAlert     = "fence_alert"     // 围栏穿越告警
	ActionStateSync      = "state_sync"      // 聚合状态上报
)

// OfflineQueueItem 等待投递的动作。ID 随 payload 一起投出，
// 消费端据此做幂等（at-least-once 语义下必然会有重复投递）。
type OfflineQueueItem struct {
	ID        int64                  `json:"id"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt int64                  `json:"created_at"`
	Status    QueueItemStatus        `json:"status"`
}

// SyncStatus 聚合层面的同步状态。
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusPending SyncStatus = "pending" // 本轮 drain 后仍有未投递项
	SyncStatusError   SyncStatus = "error"   // drain 循环本身失败，下轮重试
)

// ActionMessage 离线队列项经 MQ 投出的消息体。
type ActionMessage struct {
	MessageID  string                 `json:"message_id"` // 消息唯一ID，用于幂等性检查
	GuestID    int64                  `json:"guest_id"`
	ItemID     int64                  `json:"item_id"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	EnqueuedAt int64                  `json:"enqueued_at"`
}
