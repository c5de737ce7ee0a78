package state

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StaySafe/internal/model"
	"StaySafe/internal/notify"
	"StaySafe/internal/store"
	apperrors "StaySafe/pkg/errors"
)

func testOptions() Options {
	return Options{
		DefaultGraceMinutes: 10,
		EscalationLogMax:    200,
		FenceEventLogMax:    500,
	}
}

func newTestContainer(t *testing.T, guestID int64) (*Container, *store.Tiered, *store.MemoryBulk) {
	t.Helper()

	bulk := store.NewMemoryBulk()
	tiered := store.NewTiered(store.NewMemoryFast(), bulk, zap.NewNop())
	t.Cleanup(func() { tiered.Close(context.Background()) })

	c := NewContainer(guestID, nil, tiered, notify.NewLogSink(zap.NewNop()), zap.NewNop(), testOptions())
	return c, tiered, bulk
}

func TestCreateScheduleValidation(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	cases := []struct {
		name string
		req  model.CreateScheduleRequest
		want error
	}{
		{"empty name", model.CreateScheduleRequest{Frequency: "daily", TimeOfDay: "18:00"}, apperrors.ScheduleNameRequired},
		{"bad frequency", model.CreateScheduleRequest{Name: "x", Frequency: "fortnightly"}, apperrors.ScheduleFrequencyInvalid},
		{"bad time", model.CreateScheduleRequest{Name: "x", Frequency: "daily", TimeOfDay: "25:99"}, apperrors.ScheduleTimeInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.CreateSchedule(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	negative := -1
	_, err := c.CreateSchedule(ctx, model.CreateScheduleRequest{
		Name: "x", Frequency: "daily", TimeOfDay: "18:00", GraceMinutes: &negative,
	})
	assert.ErrorIs(t, err, apperrors.ScheduleGraceInvalid)

	// 校验失败不产生半成品
	assert.Empty(t, c.Snapshot().Schedules)
}

func TestCreateScheduleDefaultsGrace(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	sch, err := c.CreateSchedule(ctx, model.CreateScheduleRequest{
		Name: "evening", Frequency: "daily", TimeOfDay: "18:00",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, sch.GraceMinutes)
	assert.Equal(t, model.ScheduleStatusOK, sch.Status)
	assert.Greater(t, sch.NextDueAt, time.Now().UnixMilli())
}

func TestTickEscalatesOncePerCycle(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	sch, err := c.CreateSchedule(ctx, model.CreateScheduleRequest{
		Name: "evening", Frequency: "daily", TimeOfDay: "18:00",
	})
	require.NoError(t, err)

	due := time.UnixMilli(sch.NextDueAt)

	// 宽限内：overdue 但没有升级
	fired := c.Tick(ctx, due.Add(5*time.Minute))
	assert.Empty(t, fired)
	assert.Equal(t, model.ScheduleStatusOverdue, c.Snapshot().Schedules[0].Status)

	// 过宽限：升级一次，写日志并入队
	fired = c.Tick(ctx, due.Add(11*time.Minute))
	require.Len(t, fired, 1)

	snap := c.Snapshot()
	require.Len(t, snap.EscalationLog, 1)
	assert.NotZero(t, snap.EscalationLog[0].ID)
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, model.ActionNotifyContacts, snap.Queue[0].Type)
	assert.Equal(t, model.QueueStatusPending, snap.Queue[0].Status)

	// 同一周期不重复升级
	fired = c.Tick(ctx, due.Add(20*time.Minute))
	assert.Empty(t, fired)
	assert.Len(t, c.Snapshot().EscalationLog, 1)
}

func TestAcknowledgeClearsEscalationCycle(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	sch, err := c.CreateSchedule(ctx, model.CreateScheduleRequest{
		Name: "evening", Frequency: "daily", TimeOfDay: "18:00",
	})
	require.NoError(t, err)

	due := time.UnixMilli(sch.NextDueAt)
	require.Len(t, c.Tick(ctx, due.Add(11*time.Minute)), 1)

	resp, err := c.Acknowledge(ctx, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	// 下次到期严格晚于确认时刻（确认用的是真实时钟，不能拿 due 比）
	assert.Greater(t, resp.NextDueAt, resp.Acknowledged)

	got := c.Snapshot().Schedules[0]
	assert.Zero(t, got.LastEscalatedAt)
	assert.Equal(t, model.ScheduleStatusOK, got.Status)

	_, err = c.Acknowledge(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ScheduleNotFound)
}

func TestUpdateScheduleFrequencyResetsCycle(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	sch, err := c.CreateSchedule(ctx, model.CreateScheduleRequest{
		Name: "evening", Frequency: "daily", TimeOfDay: "18:00",
	})
	require.NoError(t, err)

	due := time.UnixMilli(sch.NextDueAt)
	require.Len(t, c.Tick(ctx, due.Add(11*time.Minute)), 1)

	freq := "hourly"
	updated, err := c.UpdateSchedule(ctx, sch.ID, model.UpdateScheduleRequest{Frequency: &freq})
	require.NoError(t, err)

	// 改频率视同一次确认：回到 ok，升级标记清零，到期时间重算
	assert.Equal(t, model.ScheduleStatusOK, updated.Status)
	assert.Zero(t, updated.LastEscalatedAt)
	assert.Greater(t, updated.NextDueAt, time.Now().UnixMilli())
}

func TestRecordPositionRejectsBadCoords(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	_, err := c.RecordPosition(ctx, model.Position{Lat: 95, Lng: 0})
	assert.ErrorIs(t, err, apperrors.FenceCoordsInvalid)

	_, err = c.RecordPosition(ctx, model.Position{Lat: 0, Lng: 200})
	assert.ErrorIs(t, err, apperrors.FenceCoordsInvalid)
}

func TestRecordPositionFenceLifecycle(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	fence, err := c.CreateFence(ctx, model.CreateFenceRequest{
		Name: "home", Lat: -26.2041, Lng: 28.0473, RadiusMeters: 300,
	})
	require.NoError(t, err)

	// 进入：一条 enter 事件 + 一条 fence_alert 队列项
	resp, err := c.RecordPosition(ctx, model.Position{Lat: -26.2041, Lng: 28.0473, Timestamp: 1000})
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, model.GeofenceEventEnter, resp.Events[0].Type)
	assert.Equal(t, []int64{fence.ID}, resp.Inside)

	snap := c.Snapshot()
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, model.ActionFenceAlert, snap.Queue[0].Type)
	assert.True(t, snap.InsideFences[fence.ID])

	// 原地重复上报：无新事件
	resp, err = c.RecordPosition(ctx, model.Position{Lat: -26.2041, Lng: 28.0473, Timestamp: 2000})
	require.NoError(t, err)
	assert.Empty(t, resp.Events)

	// 离开：exit 事件
	resp, err = c.RecordPosition(ctx, model.Position{Lat: -26.2141, Lng: 28.0473, Timestamp: 3000})
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, model.GeofenceEventExit, resp.Events[0].Type)
	assert.False(t, c.Snapshot().InsideFences[fence.ID])
}

func TestDeleteFenceDropsInsideMark(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	fence, err := c.CreateFence(ctx, model.CreateFenceRequest{
		Name: "home", Lat: 0, Lng: 0, RadiusMeters: 300,
	})
	require.NoError(t, err)

	_, err = c.RecordPosition(ctx, model.Position{Lat: 0, Lng: 0, Timestamp: 1000})
	require.NoError(t, err)
	require.True(t, c.Snapshot().InsideFences[fence.ID])

	require.NoError(t, c.DeleteFence(ctx, fence.ID))

	snap := c.Snapshot()
	assert.Empty(t, snap.Fences)
	assert.NotContains(t, snap.InsideFences, fence.ID)

	// 删除后同一位置不会再产生该围栏的事件
	resp, err := c.RecordPosition(ctx, model.Position{Lat: 0, Lng: 0, Timestamp: 2000})
	require.NoError(t, err)
	assert.Empty(t, resp.Events)
}

func TestHydrateFillsOnlyEmptySlices(t *testing.T) {
	ctx := context.Background()
	c, _, bulk := newTestContainer(t, 1)

	// bulk 层预置两个切片
	storedSchedules := []model.CheckInSchedule{{ID: 11, Name: "stored", Frequency: model.FrequencyHourly, NextDueAt: 1, Status: model.ScheduleStatusOK}}
	data, err := json.Marshal(storedSchedules)
	require.NoError(t, err)
	bulk.Put(1, model.SliceSchedules, data)

	storedContacts := []model.Contact{{ID: 21, DisplayName: "stale contact"}}
	data, err = json.Marshal(storedContacts)
	require.NoError(t, err)
	bulk.Put(1, model.SliceContacts, data)

	// hydration 前本地已产生联系人变更
	local, err := c.CreateContact(ctx, model.CreateContactRequest{DisplayName: "fresh contact"})
	require.NoError(t, err)

	c.Hydrate(ctx)

	snap := c.Snapshot()

	// 空切片被回灌
	require.Len(t, snap.Schedules, 1)
	assert.Equal(t, int64(11), snap.Schedules[0].ID)

	// 非空切片保持本地变更，回灌不覆盖
	require.Len(t, snap.Contacts, 1)
	assert.Equal(t, local.ID, snap.Contacts[0].ID)
	assert.Equal(t, "fresh contact", snap.Contacts[0].DisplayName)
}

func TestHydrateCorruptSliceLeavesNoPartialData(t *testing.T) {
	ctx := context.Background()
	c, _, bulk := newTestContainer(t, 1)

	// 第二个元素类型不对：数组解析到一半才失败
	bulk.Put(1, model.SliceContacts, []byte(`[{"id":1,"display_name":"ok"},{"id":"oops"}]`))

	data, err := json.Marshal([]model.CheckInSchedule{{ID: 5, Name: "good", Frequency: model.FrequencyHourly, NextDueAt: 1, Status: model.ScheduleStatusOK}})
	require.NoError(t, err)
	bulk.Put(1, model.SliceSchedules, data)

	c.Hydrate(ctx)

	snap := c.Snapshot()

	// 坏切片整体跳过，不能留下解析到一半的元素
	assert.Empty(t, snap.Contacts)

	// 其他切片照常回灌
	require.Len(t, snap.Schedules, 1)
	assert.Equal(t, int64(5), snap.Schedules[0].ID)
}

func TestHydrateRunsOnce(t *testing.T) {
	ctx := context.Background()
	c, _, bulk := newTestContainer(t, 1)

	data, err := json.Marshal([]model.Contact{{ID: 1, DisplayName: "first"}})
	require.NoError(t, err)
	bulk.Put(1, model.SliceContacts, data)

	c.Hydrate(ctx)
	require.Len(t, c.Snapshot().Contacts, 1)

	// 换掉 bulk 数据后再次 Hydrate 应当是 no-op
	data, err = json.Marshal([]model.Contact{{ID: 2, DisplayName: "second"}})
	require.NoError(t, err)
	bulk.Put(1, model.SliceContacts, data)

	c.Hydrate(ctx)
	assert.Equal(t, int64(1), c.Snapshot().Contacts[0].ID)
}

func TestEnqueueRequiresType(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	_, err := c.Enqueue(ctx, "", nil)
	assert.ErrorIs(t, err, apperrors.QueueItemTypeRequired)
}

func TestDrainLifecycle(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	first, err := c.Enqueue(ctx, model.ActionStateSync, map[string]interface{}{"n": 1})
	require.NoError(t, err)
	second, err := c.Enqueue(ctx, model.ActionStateSync, map[string]interface{}{"n": 2})
	require.NoError(t, err)

	items, ok := c.StartDrain(ctx)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, first, items[0].ID) // FIFO
	assert.Equal(t, second, items[1].ID)
	assert.Equal(t, model.SyncStatusSyncing, c.Snapshot().SyncStatus)

	// 在途时再次 StartDrain 是 no-op
	_, ok = c.StartDrain(ctx)
	assert.False(t, ok)

	c.CompleteItem(ctx, first)
	c.FailItem(ctx, second)

	status := c.FinishDrain(ctx, false)
	assert.Equal(t, model.SyncStatusPending, status)

	// 成功项移除，失败项回退为 pending 等下一轮
	snap := c.Snapshot()
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, second, snap.Queue[0].ID)
	assert.Equal(t, model.QueueStatusPending, snap.Queue[0].Status)

	// 下一轮可以重新开始
	items, ok = c.StartDrain(ctx)
	require.True(t, ok)
	require.Len(t, items, 1)
	c.CompleteItem(ctx, second)
	assert.Equal(t, model.SyncStatusIdle, c.FinishDrain(ctx, false))
	assert.Empty(t, c.Snapshot().Queue)
}

func TestStartDrainEmptyQueueNoop(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	_, ok := c.StartDrain(ctx)
	assert.False(t, ok)

	// no-op 不能把 draining 卡死
	_, err := c.Enqueue(ctx, model.ActionStateSync, nil)
	require.NoError(t, err)
	_, ok = c.StartDrain(ctx)
	assert.True(t, ok)
}

func TestFinishDrainHardFailure(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	_, err := c.Enqueue(ctx, model.ActionStateSync, nil)
	require.NoError(t, err)

	_, ok := c.StartDrain(ctx)
	require.True(t, ok)

	status := c.FinishDrain(ctx, true)
	assert.Equal(t, model.SyncStatusError, status)
	assert.Equal(t, model.QueueStatusPending, c.Snapshot().Queue[0].Status)
}

func TestUpdateProfileMergesSettings(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	name := "Ada"
	require.NoError(t, c.UpdateProfile(ctx, model.UpdateProfileRequest{
		DisplayName: &name,
		Settings:    map[string]interface{}{"theme": "dark"},
	}))

	require.NoError(t, c.UpdateProfile(ctx, model.UpdateProfileRequest{
		Settings: map[string]interface{}{"units": "metric"},
	}))

	snap := c.Snapshot()
	assert.Equal(t, "Ada", snap.Profile.DisplayName)
	assert.Equal(t, "dark", snap.Settings["theme"])
	assert.Equal(t, "metric", snap.Settings["units"])
}

func TestManagerReloadResetsInterruptedDrain(t *testing.T) {
	ctx := context.Background()

	tiered := store.NewTiered(store.NewMemoryFast(), store.NewMemoryBulk(), zap.NewNop())
	defer tiered.Close(ctx)

	m := NewManager(tiered, notify.NewLogSink(zap.NewNop()), zap.NewNop(), testOptions())

	c := m.Get(ctx, 7)
	id, err := c.Enqueue(ctx, model.ActionStateSync, nil)
	require.NoError(t, err)

	// drain 开始后进程崩溃：快照里留下 processing 项和 syncing 状态
	_, ok := c.StartDrain(ctx)
	require.True(t, ok)

	// 重启后的进程必须把这些项捞回来重投，不能让它们卡死
	m2 := NewManager(tiered, notify.NewLogSink(zap.NewNop()), zap.NewNop(), testOptions())
	c2 := m2.Get(ctx, 7)

	snap := c2.Snapshot()
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, model.QueueStatusPending, snap.Queue[0].Status)
	assert.NotEqual(t, model.SyncStatusSyncing, snap.SyncStatus)

	items, ok := c2.StartDrain(ctx)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
}

func TestManagerReloadsFromFastTier(t *testing.T) {
	ctx := context.Background()

	tiered := store.NewTiered(store.NewMemoryFast(), store.NewMemoryBulk(), zap.NewNop())
	defer tiered.Close(ctx)

	m := NewManager(tiered, notify.NewLogSink(zap.NewNop()), zap.NewNop(), testOptions())

	c := m.Get(ctx, 7)
	_, err := c.CreateContact(ctx, model.CreateContactRequest{DisplayName: "Ada"})
	require.NoError(t, err)

	// 新 Manager 模拟进程重启：fast 层快照立即可用
	m2 := NewManager(tiered, notify.NewLogSink(zap.NewNop()), zap.NewNop(), testOptions())
	snap := m2.Get(ctx, 7).Snapshot()
	require.Len(t, snap.Contacts, 1)
	assert.Equal(t, "Ada", snap.Contacts[0].DisplayName)
}
