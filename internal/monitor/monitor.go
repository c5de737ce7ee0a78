package monitor

// 后台循环：打卡状态扫描、离线队列周期 drain、事件日志裁剪。
// 都只遍历已加载的容器，未触达的 guest 留在存储层不动。

import (
	"context"
	"time"

	"go.uber.org/zap"

	"StaySafe/config"
	"StaySafe/internal/queue"
	"StaySafe/internal/state"
	"StaySafe/pkg/logger"
)

type Monitor struct {
	manager *state.Manager
	drainer *queue.Drainer
}

func New(manager *state.Manager, drainer *queue.Drainer) *Monitor {
	return &Monitor{
		manager: manager,
		drainer: drainer,
	}
}

// Start 启动所有后台循环，ctx 取消后各循环自行退出。
func (m *Monitor) Start(ctx context.Context) {
	go m.runCheckInLoop(ctx)
	go m.runDrainLoop(ctx)
	go m.runPruneLoop(ctx)
}

// runCheckInLoop 周期扫描打卡计划，标记逾期并触发升级。
func (m *Monitor) runCheckInLoop(ctx context.Context) {
	interval := time.Duration(config.Cfg.CheckInTickSeconds) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Logger.Info("Check-in tick loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, c := range m.manager.Loaded() {
				runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				escalations := c.Tick(runCtx, now)
				cancel()

				if len(escalations) > 0 {
					logger.Logger.Info("Check-in tick produced escalations",
						zap.Int64("guest_id", c.GuestID()),
						zap.Int("count", len(escalations)),
					)
				}
			}
		}
	}
}

// runDrainLoop 周期性投递离线队列。
// drain 用独立的超时上下文，关闭信号不打断进行中的一轮投递。
func (m *Monitor) runDrainLoop(ctx context.Context) {
	interval := time.Duration(config.Cfg.QueueDrainSeconds) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Logger.Info("Queue drain loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range m.manager.Loaded() {
				if c.Snapshot().PendingQueueItems() == 0 {
					continue
				}

				runCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				result := m.drainer.Drain(runCtx, c)
				cancel()

				if result.Attempted > 0 {
					logger.Logger.Info("Background drain completed",
						zap.Int64("guest_id", c.GuestID()),
						zap.Int("attempted", result.Attempted),
						zap.Int("delivered", result.Delivered),
						zap.Int("remaining", result.Remaining),
						zap.String("sync_status", result.SyncStatus),
					)
				}
			}
		}
	}
}

// runPruneLoop 周期裁剪升级日志与围栏事件，保留最近 N 条。
func (m *Monitor) runPruneLoop(ctx context.Context) {
	interval := time.Duration(config.Cfg.LogPruneMinutes) * time.Minute

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Logger.Info("Log prune loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range m.manager.Loaded() {
				runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				c.PruneLogs(runCtx)
				cancel()
			}
		}
	}
}
