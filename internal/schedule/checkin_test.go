package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StaySafe/internal/model"
)

func TestComputeNextDueStrictlyFuture(t *testing.T) {
	now := time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		frequency model.Frequency
		timeOfDay string
	}{
		{"hourly", model.FrequencyHourly, ""},
		{"daily at due moment", model.FrequencyDaily, "18:00"},
		{"daily earlier today", model.FrequencyDaily, "09:00"},
		{"weekly", model.FrequencyWeekly, "18:00"},
		{"unknown frequency", model.Frequency("bogus"), ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next := ComputeNextDue(tc.frequency, tc.timeOfDay, now)
			assert.Greater(t, next, now.UnixMilli())
		})
	}
}

func TestComputeNextDueDaily(t *testing.T) {
	loc := time.UTC

	// 当天时刻还没到，应落在今天
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, loc)
	next := ComputeNextDue(model.FrequencyDaily, "18:00", now)
	assert.Equal(t, time.Date(2026, 3, 4, 18, 0, 0, 0, loc).UnixMilli(), next)

	// 已过当天时刻，顺延到明天
	now = time.Date(2026, 3, 4, 19, 0, 0, 0, loc)
	next = ComputeNextDue(model.FrequencyDaily, "18:00", now)
	assert.Equal(t, time.Date(2026, 3, 5, 18, 0, 0, 0, loc).UnixMilli(), next)
}

func TestComputeNextDueWeekly(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	next := ComputeNextDue(model.FrequencyWeekly, "18:00", now)
	assert.Equal(t, time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC).UnixMilli(), next)
}

func newDailySchedule(due time.Time, graceMinutes int) model.CheckInSchedule {
	return model.CheckInSchedule{
		ID:           1,
		Name:         "evening check",
		Frequency:    model.FrequencyDaily,
		TimeOfDay:    "18:00",
		GraceMinutes: graceMinutes,
		NextDueAt:    due.UnixMilli(),
		Status:       model.ScheduleStatusOK,
	}
}

func TestTickOverdueThenEscalateOnce(t *testing.T) {
	due := time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)
	schedules := []model.CheckInSchedule{newDailySchedule(due, 10)}

	// 到期但宽限内：只标 overdue，不升级
	result := Tick(schedules, due.Add(5*time.Minute))
	require.True(t, result.Changed())
	assert.Equal(t, model.ScheduleStatusOverdue, result.Schedules[0].Status)
	assert.Empty(t, result.Escalations)

	// 过宽限：升级一次
	result = Tick(result.Schedules, due.Add(11*time.Minute))
	require.True(t, result.Changed())
	require.Len(t, result.Escalations, 1)
	assert.Equal(t, int64(1), result.Escalations[0].ScheduleID)
	assert.Contains(t, result.Escalations[0].Message, "evening check")
	assert.NotZero(t, result.Schedules[0].LastEscalatedAt)

	// 后续 tick 不再重复升级
	result = Tick(result.Schedules, due.Add(20*time.Minute))
	assert.False(t, result.Changed())
	assert.Empty(t, result.Escalations)
}

func TestTickZeroGraceEscalatesImmediately(t *testing.T) {
	due := time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)
	schedules := []model.CheckInSchedule{newDailySchedule(due, 0)}

	result := Tick(schedules, due)
	require.True(t, result.Changed())
	assert.Equal(t, model.ScheduleStatusOverdue, result.Schedules[0].Status)
	require.Len(t, result.Escalations, 1)
}

func TestTickSkipsUninitializedSchedule(t *testing.T) {
	due := time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)

	broken := newDailySchedule(due, 10)
	broken.ID = 2
	broken.NextDueAt = 0

	schedules := []model.CheckInSchedule{broken, newDailySchedule(due, 10)}

	result := Tick(schedules, due.Add(11*time.Minute))
	require.True(t, result.Changed())

	// 坏数据原样保留，正常计划照常升级
	assert.Equal(t, model.ScheduleStatusOK, result.Schedules[0].Status)
	require.Len(t, result.Escalations, 1)
	assert.Equal(t, int64(1), result.Escalations[0].ScheduleID)
}

func TestAcknowledgeResetsCycle(t *testing.T) {
	due := time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)
	sch := newDailySchedule(due, 10)

	now := due.Add(11 * time.Minute)
	result := Tick([]model.CheckInSchedule{sch}, now)
	require.Len(t, result.Escalations, 1)

	acked := Acknowledge(result.Schedules[0], now)
	assert.Equal(t, model.ScheduleStatusOK, acked.Status)
	assert.Zero(t, acked.LastEscalatedAt)
	assert.Equal(t, now.UnixMilli(), acked.LastCheckedInAt)
	assert.Greater(t, acked.NextDueAt, now.UnixMilli())

	// 确认后的计划在宽限窗口外也不会再升级
	after := Tick([]model.CheckInSchedule{acked}, now.Add(time.Minute))
	assert.Empty(t, after.Escalations)
}
