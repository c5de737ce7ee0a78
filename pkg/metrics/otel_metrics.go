package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 打卡相关指标
	EscalationsTotal     metric.Int64Counter
	AcknowledgementsTotal metric.Int64Counter
	SchedulesOverdue     metric.Int64UpDownCounter

	// 围栏相关指标
	FenceEventsTotal metric.Int64Counter

	// 离线队列相关指标
	QueueDrainsTotal    metric.Int64Counter
	QueueItemsDelivered metric.Int64Counter
	QueueItemsFailed    metric.Int64Counter
}

var (
	// 全局指标实例
	metrics *OTelMetrics
	// meter 用于创建指标
	meter = otel.Meter("staysafe")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	metrics = &OTelMetrics{}

	metrics.EscalationsTotal, err = meter.Int64Counter(
		"checkin_escalations_total",
		metric.WithDescription("Total number of check-in escalations fired"),
		metric.WithUnit("{escalation}"),
	)
	if err != nil {
		return err
	}

	metrics.AcknowledgementsTotal, err = meter.Int64Counter(
		"checkin_acknowledgements_total",
		metric.WithDescription("Total number of check-in acknowledgements"),
		metric.WithUnit("{ack}"),
	)
	if err != nil {
		return err
	}

	metrics.SchedulesOverdue, err = meter.Int64UpDownCounter(
		"checkin_schedules_overdue",
		metric.WithDescription("Schedules currently overdue"),
		metric.WithUnit("{schedule}"),
	)
	if err != nil {
		return err
	}

	metrics.FenceEventsTotal, err = meter.Int64Counter(
		"geofence_events_total",
		metric.WithDescription("Total number of geofence enter/exit events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	metrics.QueueDrainsTotal, err = meter.Int64Counter(
		"offline_queue_drains_total",
		metric.WithDescription("Total number of offline queue drain passes"),
		metric.WithUnit("{drain}"),
	)
	if err != nil {
		return err
	}

	metrics.QueueItemsDelivered, err = meter.Int64Counter(
		"offline_queue_items_delivered_total",
		metric.WithDescription("Offline queue items delivered successfully"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return err
	}

	metrics.QueueItemsFailed, err = meter.Int64Counter(
		"offline_queue_items_failed_total",
		metric.WithDescription("Offline queue item delivery attempts that failed"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordEscalation 记录一次升级
func RecordEscalation(ctx context.Context, scheduleID int64) {
	if metrics == nil {
		return
	}
	metrics.EscalationsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Int64("schedule_id", scheduleID)),
	)
}

// RecordAcknowledgement 记录一次平安确认
func RecordAcknowledgement(ctx context.Context) {
	if metrics == nil {
		return
	}
	metrics.AcknowledgementsTotal.Add(ctx, 1)
}

// RecordFenceEvent 记录一次围栏事件
func RecordFenceEvent(ctx context.Context, eventType string) {
	if metrics == nil {
		return
	}
	metrics.FenceEventsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", eventType)),
	)
}

// RecordDrain 记录一轮 drain 结果
func RecordDrain(ctx context.Context, delivered, failed int64) {
	if metrics == nil {
		return
	}
	metrics.QueueDrainsTotal.Add(ctx, 1)
	if delivered > 0 {
		metrics.QueueItemsDelivered.Add(ctx, delivered)
	}
	if failed > 0 {
		metrics.QueueItemsFailed.Add(ctx, failed)
	}
}
