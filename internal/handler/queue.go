package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"StaySafe/internal/model"
	"StaySafe/pkg/response"
)

// GetQueueStatus 查询离线动作队列状态。
// GET /v1/queue
func GetQueueStatus(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	s := container.Snapshot()
	response.Success(ctx, c, model.QueueStatusData{
		SyncStatus: string(s.SyncStatus),
		Pending:    s.PendingQueueItems(),
		Items:      s.Queue,
	})
}

// DrainQueue 手动触发一次队列投递。
// POST /v1/queue/drain
func DrainQueue(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	response.Success(ctx, c, drainer.Drain(ctx, container))
}
