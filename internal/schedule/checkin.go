package schedule

// 打卡计划的纯状态机：到期 → overdue → 过宽限窗口后升级一次。
// 这里不做任何 I/O，由 30 秒一次的 monitor tick 驱动，
// 所有写回都经过 state.Container 的单写入口。

import (
	"fmt"
	"time"

	"StaySafe/internal/model"
)

// ComputeNextDue 计算下一次到期时间（epoch 毫秒），对任意频率严格大于 now。
// hourly：now + 1 小时。
// daily：今天的 timeOfDay，已过则顺延到明天。
// weekly：下一个 daily 时刻再加 7 天——锚定在创建/确认时间的固定周节奏，不绑定星期几。
// 未知频率回退为 +24 小时。
func ComputeNextDue(frequency model.Frequency, timeOfDay string, now time.Time) int64 {
	switch frequency {
	case model.FrequencyHourly:
		return now.Add(time.Hour).UnixMilli()

	case model.FrequencyDaily:
		return nextDailyOccurrence(timeOfDay, now).UnixMilli()

	case model.FrequencyWeekly:
		return nextDailyOccurrence(timeOfDay, now).AddDate(0, 0, 7).UnixMilli()

	default:
		return now.Add(24 * time.Hour).UnixMilli()
	}
}

// nextDailyOccurrence 返回 timeOfDay（HH:MM）严格晚于 now 的下一次出现。
func nextDailyOccurrence(timeOfDay string, now time.Time) time.Time {
	parsed, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		// 非法时间串不应到达这里（构造期已校验），兜底顺延一天
		return now.Add(24 * time.Hour)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())

	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// TickResult 一次 tick 的输出：替换后的计划集和新产生的升级日志。
// 升级日志的 ID 由调用方分配。
type TickResult struct {
	Schedules   []model.CheckInSchedule
	Escalations []model.EscalationEntry

	schedulesChanged bool
}

// Changed 本次 tick 是否产生了任何状态迁移。
func (r TickResult) Changed() bool {
	return r.schedulesChanged
}

// Tick 对全部计划做一次纯求值。
// 到期即标 overdue；过宽限窗口且本周期尚未升级（lastEscalatedAt 为零）才追加
// 升级日志并置位 lastEscalatedAt——只看经过时间会在每个后续 tick 重复升级，
// 置位检查保证每个到期周期恰好升级一次。graceMinutes 为 0 时同一 tick 内
// 先 overdue 再升级。单个计划的数据异常不影响其余计划的求值。
func Tick(schedules []model.CheckInSchedule, now time.Time) TickResult {
	nowMs := now.UnixMilli()

	result := TickResult{
		Schedules: make([]model.CheckInSchedule, len(schedules)),
	}

	for i, sch := range schedules {
		if sch.NextDueAt <= 0 {
			// 未初始化的计划跳过，不能让它挡住同一轮的其他计划
			result.Schedules[i] = sch
			continue
		}

		if nowMs >= sch.NextDueAt && sch.Status != model.ScheduleStatusOverdue {
			sch.Status = model.ScheduleStatusOverdue
			sch.UpdatedAt = nowMs
			result.schedulesChanged = true
		}

		graceMs := int64(sch.GraceMinutes) * 60_000
		if nowMs >= sch.NextDueAt+graceMs && sch.LastEscalatedAt == 0 {
			sch.LastEscalatedAt = nowMs
			sch.UpdatedAt = nowMs
			result.schedulesChanged = true

			result.Escalations = append(result.Escalations, model.EscalationEntry{
				ScheduleID: sch.ID,
				Type:       model.EscalationEntryType,
				OccurredAt: nowMs,
				Message:    fmt.Sprintf("Missed check-in for %q, escalating to contacts", sch.Name),
			})
		}

		result.Schedules[i] = sch
	}

	return result
}

// Acknowledge 平安确认：任何状态都回到 pending，重算 nextDueAt，
// 清掉本周期的升级标记。编辑频率/时间也复用这条路径（视同确认）。
func Acknowledge(sch model.CheckInSchedule, now time.Time) model.CheckInSchedule {
	nowMs := now.UnixMilli()

	sch.Status = model.ScheduleStatusOK
	sch.NextDueAt = ComputeNextDue(sch.Frequency, sch.TimeOfDay, now)
	sch.LastCheckedInAt = nowMs
	sch.LastEscalatedAt = 0
	sch.UpdatedAt = nowMs

	return sch
}
