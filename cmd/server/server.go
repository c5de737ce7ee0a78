package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"StaySafe/config"
	"StaySafe/internal/cache"
	"StaySafe/internal/handler"
	"StaySafe/internal/middleware"
	"StaySafe/internal/monitor"
	"StaySafe/internal/notify"
	"StaySafe/internal/queue"
	"StaySafe/internal/router"
	"StaySafe/internal/state"
	"StaySafe/internal/store"
	"StaySafe/pkg/logger"
	"StaySafe/pkg/metrics"
	otelpkg "StaySafe/pkg/otel"
	"StaySafe/pkg/snowflake"
	"StaySafe/pkg/token"
	"StaySafe/storage"
)

func main() {
	config.Load()

	// 日志部分
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	// OpenTelemetry 尽早初始化，后续组件都挂在全局 provider 上
	otelShutdown, err := otelpkg.InitOpenTelemetry(ctx, otelpkg.Config{
		ServiceName:    config.Cfg.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    config.Cfg.Environment,
		OTLPEndpoint:   config.Cfg.OTLPEndpoint,
		SampleRatio:    config.Cfg.OTelSampler,
	})
	if err != nil {
		logger.Logger.Warn("Failed to initialize OpenTelemetry, telemetry disabled", zap.Error(err))
	} else {
		defer func() {
			if err := otelShutdown(context.Background()); err != nil {
				logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
			}
		}()
	}

	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Warn("Failed to initialize domain metrics", zap.Error(err))
	}
	if err := middleware.InitMetrics(otel.Meter("hertz-server")); err != nil {
		logger.Logger.Warn("Failed to initialize HTTP metrics", zap.Error(err))
	}

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	} // token 在中间件前初始化，middleware 依赖 token

	// 初始化中间件
	if err := middleware.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	// 两层存储 + 状态容器 + drainer 装配
	tiered := store.NewTiered(store.NewRedisFast(), store.NewGormBulk(), logger.Logger)
	defer tiered.Close(context.Background())

	manager := state.NewManager(tiered, notify.NewLogSink(logger.Logger), logger.Logger, state.Options{
		DefaultGraceMinutes: config.Cfg.DefaultGraceMinutes,
		EscalationLogMax:    config.Cfg.EscalationLogMax,
		FenceEventLogMax:    config.Cfg.FenceEventLogMax,
	})

	drainer := queue.NewDrainer(queue.NewMQDeliverer(), cache.NewRedisLocker(), logger.Logger)

	handler.Init(manager, drainer)

	// 后台循环：打卡扫描、周期 drain、日志裁剪
	monitor.New(manager, drainer).Start(ctx)

	logger.Logger.Info("Server starting",
		zap.String("service", config.Cfg.ServiceName),
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
	)

	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)
	h := server.Default(server.WithHostPorts(addr))

	router.Register(h)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
