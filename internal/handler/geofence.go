package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"StaySafe/internal/model"
	"StaySafe/pkg/errors"
	"StaySafe/pkg/response"
)

func fenceIDParam(c *app.RequestContext) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("fence_id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ListFences 列出地理围栏。
// GET /v1/geofences
func ListFences(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	response.Success(ctx, c, container.Snapshot().Fences)
}

// CreateFence 创建地理围栏。
// POST /v1/geofences
func CreateFence(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	var req model.CreateFenceRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	fence, err := container.CreateFence(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, fence)
}

// UpdateFence 编辑地理围栏。
// PATCH /v1/geofences/:fence_id
func UpdateFence(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	id, ok := fenceIDParam(c)
	if !ok {
		response.Error(ctx, c, errors.FenceNotFound)
		return
	}

	var req model.UpdateFenceRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	fence, err := container.UpdateFence(ctx, id, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, fence)
}

// DeleteFence 删除地理围栏，同时丢弃其在场状态。
// DELETE /v1/geofences/:fence_id
func DeleteFence(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	id, ok := fenceIDParam(c)
	if !ok {
		response.Error(ctx, c, errors.FenceNotFound)
		return
	}

	if err := container.DeleteFence(ctx, id); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// GetFenceEvents 查询围栏进出事件。
// GET /v1/geofences/events
func GetFenceEvents(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	response.Success(ctx, c, container.Snapshot().FenceEvents)
}

// ReportPosition 上报位置样本，返回本次触发的围栏事件。
// POST /v1/position
func ReportPosition(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	var req model.PositionRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := container.RecordPosition(ctx, model.Position{
		Lat:       req.Lat,
		Lng:       req.Lng,
		Accuracy:  req.Accuracy,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
