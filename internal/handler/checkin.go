package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"StaySafe/internal/model"
	"StaySafe/pkg/errors"
	"StaySafe/pkg/response"
)

func scheduleIDParam(c *app.RequestContext) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("schedule_id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ListSchedules 列出打卡计划。
// GET /v1/check-ins
func ListSchedules(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	response.Success(ctx, c, container.Snapshot().Schedules)
}

// CreateSchedule 创建打卡计划。
// POST /v1/check-ins
func CreateSchedule(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	var req model.CreateScheduleRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	schedule, err := container.CreateSchedule(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, schedule)
}

// UpdateSchedule 编辑打卡计划，频率或时间变更会重算下次到期时间。
// PATCH /v1/check-ins/:schedule_id
func UpdateSchedule(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	id, ok := scheduleIDParam(c)
	if !ok {
		response.Error(ctx, c, errors.ScheduleNotFound)
		return
	}

	var req model.UpdateScheduleRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	schedule, err := container.UpdateSchedule(ctx, id, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, schedule)
}

// DeleteSchedule 删除打卡计划。
// DELETE /v1/check-ins/:schedule_id
func DeleteSchedule(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	id, ok := scheduleIDParam(c)
	if !ok {
		response.Error(ctx, c, errors.ScheduleNotFound)
		return
	}

	if err := container.DeleteSchedule(ctx, id); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// AcknowledgeSchedule 平安确认，重置逾期状态并推进下一个到期时间。
// POST /v1/check-ins/:schedule_id/acknowledge
func AcknowledgeSchedule(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	id, ok := scheduleIDParam(c)
	if !ok {
		response.Error(ctx, c, errors.ScheduleNotFound)
		return
	}

	result, err := container.Acknowledge(ctx, id)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetEscalationLog 查询升级记录。
// GET /v1/check-ins/logs
func GetEscalationLog(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	response.Success(ctx, c, container.Snapshot().EscalationLog)
}
