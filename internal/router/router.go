package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"StaySafe/internal/handler"
	"StaySafe/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RequestIDMiddleware())
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := h.Group("/v1")

	// 匿名会话创建，不需要鉴权
	auth := v1.Group("/auth")
	{
		auth.POST("/guest", handler.CreateGuestSession)
	}

	// 访客聚合路由
	me := v1.Group("/me")
	me.Use(middleware.AuthMiddleware())
	me.Use(middleware.GeneralRateLimitMiddleware())
	{
		me.GET("/state", handler.GetState)
		me.PUT("/profile", handler.UpdateProfile)
		me.GET("/export", handler.ExportState)
		me.POST("/import", middleware.ImportRateLimitMiddleware(), handler.ImportState)
	}

	// 平安打卡路由
	checkIns := v1.Group("/check-ins")
	checkIns.Use(middleware.AuthMiddleware())
	{
		checkIns.GET("", handler.ListSchedules)
		checkIns.POST("", handler.CreateSchedule)
		checkIns.PATCH("/:schedule_id", handler.UpdateSchedule)
		checkIns.DELETE("/:schedule_id", handler.DeleteSchedule)
		checkIns.POST("/:schedule_id/acknowledge", handler.AcknowledgeSchedule)
		checkIns.GET("/logs", handler.GetEscalationLog)
	}

	// 地理围栏路由
	geofences := v1.Group("/geofences")
	geofences.Use(middleware.AuthMiddleware())
	{
		geofences.GET("", handler.ListFences)
		geofences.POST("", handler.CreateFence)
		geofences.PATCH("/:fence_id", handler.UpdateFence)
		geofences.DELETE("/:fence_id", handler.DeleteFence)
		geofences.GET("/events", handler.GetFenceEvents)
	}

	// 位置上报，客户端高频调用，单独限流
	v1.POST("/position", middleware.AuthMiddleware(), middleware.PositionRateLimitMiddleware(), handler.ReportPosition)

	// 紧急联系人路由
	contacts := v1.Group("/contacts")
	contacts.Use(middleware.AuthMiddleware())
	{
		contacts.GET("", handler.ListContacts)
		contacts.POST("", handler.CreateContact)
		contacts.DELETE("/:contact_id", handler.DeleteContact)
	}

	// 离线队列路由
	queue := v1.Group("/queue")
	queue.Use(middleware.AuthMiddleware())
	{
		queue.GET("", handler.GetQueueStatus)
		queue.POST("/drain", middleware.DrainRateLimitMiddleware(), handler.DrainQueue)
	}
}
