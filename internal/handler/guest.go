package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"StaySafe/internal/model"
	"StaySafe/pkg/errors"
	"StaySafe/pkg/response"
	"StaySafe/pkg/snowflake"
	"StaySafe/pkg/token"
)

// CreateGuestSession 创建匿名访客会话并签发访问令牌。
// POST /v1/auth/guest
func CreateGuestSession(ctx context.Context, c *app.RequestContext) {
	guestID, err := snowflake.NextID()
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	accessToken, expiresIn, err := token.GenerateGuestToken(guestID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, map[string]interface{}{
		"guest_id":     guestID,
		"access_token": accessToken,
		"expires_in":   expiresIn,
	})
}

// GetState 返回访客的完整状态聚合。
// GET /v1/me/state
func GetState(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	response.Success(ctx, c, container.Snapshot())
}

// UpdateProfile 更新访客档案和设置。
// PUT /v1/me/profile
func UpdateProfile(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := container.UpdateProfile(ctx, req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, container.Snapshot().Profile)
}

// ExportState 导出访客数据为带版本号的 JSON 文档。
// GET /v1/me/export
func ExportState(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	response.Success(ctx, c, container.Export())
}

// ImportState 导入此前导出的文档，校验失败时整体拒绝。
// POST /v1/me/import
func ImportState(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	result := container.Import(ctx, c.Request.Body())
	if !result.Success {
		response.ErrorWithDetails(ctx, c, errors.Get(result.Code), map[string]interface{}{
			"merged": result.Merged,
		})
		return
	}

	response.Success(ctx, c, result)
}
