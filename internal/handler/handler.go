package handler

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"

	"StaySafe/internal/middleware"
	"StaySafe/internal/queue"
	"StaySafe/internal/state"
	"StaySafe/pkg/response"
)

// handler 层通过包级单例访问服务，入口在启动时注入一次。
var (
	stateManager *state.Manager
	drainer      *queue.Drainer
)

func Init(m *state.Manager, d *queue.Drainer) {
	stateManager = m
	drainer = d
}

// guestContainer 取出当前请求访客的状态容器。
// 鉴权中间件保证了 guest ID 存在，缺失视为编程错误。
func guestContainer(ctx context.Context, c *app.RequestContext) (*state.Container, bool) {
	guestID, ok := middleware.GetGuestID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("guest ID not found in context"))
		return nil, false
	}

	return stateManager.Get(ctx, guestID), true
}
