package notify

// 本地通知 sink：升级发生时尽力弹一条本地通知。
// 无权限或发送失败都不能阻塞升级日志的写入，所以错误只记日志。

import (
	"context"

	"go.uber.org/zap"
)

// Sink 本地通知出口。
type Sink interface {
	Notify(ctx context.Context, guestID int64, title, body string) error
}

// LogSink 默认实现：把通知决定写进结构化日志。
// 真正的推送通道接在这里，不在核心范围内。
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, guestID int64, title, body string) error {
	s.logger.Info("Local notification requested",
		zap.Int64("guest_id", guestID),
		zap.String("title", title),
		zap.String("body", body),
	)
	return nil
}
