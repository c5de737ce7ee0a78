package model

import (
	"regexp"

	"StaySafe/pkg/errors"
)

// Frequency 打卡频率枚举
type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// ScheduleStatus 打卡计划状态枚举
type ScheduleStatus string

const (
	ScheduleStatusOK      ScheduleStatus = "ok"      // nextDueAt 在未来
	ScheduleStatusOverdue ScheduleStatus = "overdue" // 已到期未确认
)

// timeOfDayPattern 校验 HH:MM 格式
var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// CheckInSchedule 定期打卡计划。
// 时间字段统一用 epoch 毫秒，0 表示从未发生。
type CheckInSchedule struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Frequency       Frequency      `json:"frequency"`
	TimeOfDay       string         `json:"time_of_day"` // HH:MM，hourly 时忽略
	Contacts        []int64        `json:"contacts"`    // 升级时要通知的联系人，按优先级排序
	GraceMinutes    int            `json:"grace_minutes"`
	NextDueAt       int64          `json:"next_due_at"`
	Status          ScheduleStatus `json:"status"`
	LastCheckedInAt int64          `json:"last_checked_in_at,omitempty"`
	LastEscalatedAt int64          `json:"last_escalated_at,omitempty"` // 每个到期周期最多置位一次，确认时清零
	CreatedAt       int64          `json:"created_at"`
	UpdatedAt       int64          `json:"updated_at"`
}

// ValidateSchedule 在创建/编辑前拒绝非法字段组合，保证不会产生半成品计划。
func ValidateSchedule(name string, frequency Frequency, timeOfDay string, graceMinutes int) error {
	if name == "" {
		return errors.ScheduleNameRequired
	}

	switch frequency {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly:
	default:
		return errors.ScheduleFrequencyInvalid
	}

	if frequency != FrequencyHourly && !timeOfDayPattern.MatchString(timeOfDay) {
		return errors.ScheduleTimeInvalid
	}

	if graceMinutes < 0 {
		return errors.ScheduleGraceInvalid
	}

	return nil
}

// EscalationEntryType 目前只有一种日志类型
const EscalationEntryType = "escalation"

// EscalationEntry 升级日志，追加后不可变，按保留窗口裁剪。
type EscalationEntry struct {
	ID         int64  `json:"id"`
	ScheduleID int64  `json:"schedule_id"`
	Type       string `json:"type"`
	OccurredAt int64  `json:"occurred_at"`
	Message    string `json:"message"`
}
