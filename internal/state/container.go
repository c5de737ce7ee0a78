package state

// Guest 聚合的唯一写入口。所有变更（UI 请求、tick、围栏求值）都走
// Update：在锁内对最新状态的深拷贝做变更，换入新副本，然后同步写
// fast 层、异步写被触碰的 bulk collection。其余组件只拿快照，
// 不直接改共享集合，避免并发回调互相覆盖。

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"StaySafe/internal/geofence"
	"StaySafe/internal/model"
	"StaySafe/internal/notify"
	"StaySafe/internal/schedule"
	apperrors "StaySafe/pkg/errors"
	"StaySafe/pkg/metrics"
	"StaySafe/pkg/snowflake"
)

// Store 容器需要的两级持久化能力，*store.Tiered 满足该接口。
type Store interface {
	WriteFast(ctx context.Context, guestID int64, snapshot []byte) error
	ReadFast(ctx context.Context, guestID int64) ([]byte, error)
	WriteBulk(guestID int64, slice string, data []byte)
	ReadBulk(ctx context.Context, guestID int64, slice string) ([]byte, error)
}

// Options 容器行为参数，由 Manager 从配置填充。
type Options struct {
	DefaultGraceMinutes int
	EscalationLogMax    int
	FenceEventLogMax    int
}

// errNoChanges mutator 用它表示本次没有任何变更，跳过换入和持久化。
var errNoChanges = errors.New("state unchanged")

type Container struct {
	guestID int64
	store   Store
	logger  *zap.Logger
	sink    notify.Sink
	opts    Options

	mu    sync.Mutex
	state *model.GuestState

	hydrateOnce sync.Once

	drainMu  sync.Mutex
	draining bool
}

// NewContainer 用给定初始状态建容器。初始状态来自 fast 层快照或空聚合。
func NewContainer(guestID int64, initial *model.GuestState, st Store, sink notify.Sink, logger *zap.Logger, opts Options) *Container {
	if initial == nil {
		initial = model.NewGuestState(guestID)
	}
	initial.GuestID = guestID

	return &Container{
		guestID: guestID,
		store:   st,
		logger:  logger,
		sink:    sink,
		opts:    opts,
		state:   initial,
	}
}

func (c *Container) GuestID() int64 {
	return c.guestID
}

// Snapshot 返回当前聚合的深拷贝，读方随意使用。
func (c *Container) Snapshot() *model.GuestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Update 单写入口。mutator 在深拷贝上工作并返回被触碰的 collection 名；
// 返回错误则什么都不发生。换入后 fast 层同步落快照（失败只记日志，
// fast 层下一次变更会整体重写），touched 的 bulk 切片异步落库。
func (c *Container) Update(ctx context.Context, mutator func(s *model.GuestState) ([]string, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.Clone()

	touched, err := mutator(next)
	if errors.Is(err, errNoChanges) {
		return nil
	}
	if err != nil {
		return err
	}

	next.UpdatedAt = time.Now().UnixMilli()
	c.state = next

	c.persistLocked(ctx, touched)
	return nil
}

// persistLocked 持有锁时调用：同步写 fast 快照，异步写 touched 切片。
func (c *Container) persistLocked(ctx context.Context, touched []string) {
	snapshot, err := json.Marshal(c.state)
	if err != nil {
		c.logger.Error("Failed to marshal state snapshot",
			zap.Int64("guest_id", c.guestID),
			zap.Error(err),
		)
		return
	}

	if err := c.store.WriteFast(ctx, c.guestID, snapshot); err != nil {
		// 瞬态 I/O：吞掉并依赖下一次变更重写整份快照
		c.logger.Warn("Fast tier write failed",
			zap.Int64("guest_id", c.guestID),
			zap.Error(err),
		)
	}

	for _, slice := range touched {
		data, err := marshalSlice(c.state, slice)
		if err != nil {
			c.logger.Error("Failed to marshal state slice",
				zap.Int64("guest_id", c.guestID),
				zap.String("slice", slice),
				zap.Error(err),
			)
			continue
		}
		c.store.WriteBulk(c.guestID, slice, data)
	}
}

func marshalSlice(s *model.GuestState, slice string) ([]byte, error) {
	switch slice {
	case model.SliceSchedules:
		return json.Marshal(s.Schedules)
	case model.SliceScheduleLogs:
		return json.Marshal(s.EscalationLog)
	case model.SliceFences:
		return json.Marshal(s.Fences)
	case model.SliceFenceLogs:
		return json.Marshal(s.FenceEvents)
	case model.SliceContacts:
		return json.Marshal(s.Contacts)
	case model.SliceRelationships:
		return json.Marshal(s.Relationships)
	case model.SliceOfflineQueue:
		return json.Marshal(s.Queue)
	default:
		return nil, fmt.Errorf("unknown state slice %q", slice)
	}
}

// nextID 分配本地唯一 ID。snowflake 不可用时退回时间戳，
// 这个规模下碰撞概率视为零。
func nextID() int64 {
	id, err := snowflake.NextID()
	if err != nil {
		return time.Now().UnixNano()
	}
	return id
}

// Hydrate 启动时执行一次：并行读全部 bulk 切片，只合并到仍是
// 默认空值的 collection 里。hydration 进行期间的用户变更永远赢——
// 已经非空的切片不会被回灌覆盖。不阻塞调用方的其他请求。
func (c *Container) Hydrate(ctx context.Context) {
	c.hydrateOnce.Do(func() {
		loaded := make(map[string][]byte, len(model.AllSlices))
		var loadedMu sync.Mutex
		var wg sync.WaitGroup

		for _, slice := range model.AllSlices {
			wg.Add(1)
			go func(slice string) {
				defer wg.Done()

				data, err := c.store.ReadBulk(ctx, c.guestID, slice)
				if err != nil {
					// 瞬态 I/O：hydration 失败不致命，fast 层已经可用
					c.logger.Warn("Bulk tier read failed during hydration",
						zap.Int64("guest_id", c.guestID),
						zap.String("slice", slice),
						zap.Error(err),
					)
					return
				}
				if data == nil {
					return
				}

				loadedMu.Lock()
				loaded[slice] = data
				loadedMu.Unlock()
			}(slice)
		}
		wg.Wait()

		if len(loaded) == 0 {
			return
		}

		err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
			merged := mergeHydrated(s, loaded)
			if len(merged) == 0 {
				return nil, errNoChanges
			}
			return nil, nil // 数据本来就来自 bulk 层，只需刷新 fast 快照
		})
		if err != nil {
			c.logger.Warn("Hydration merge failed",
				zap.Int64("guest_id", c.guestID),
				zap.Error(err),
			)
			return
		}

		c.logger.Info("Hydration completed",
			zap.Int64("guest_id", c.guestID),
			zap.Int("slices_loaded", len(loaded)),
		)
	})
}

// mergeHydrated 把 bulk 数据灌进仍为空的切片，返回实际合并的切片名。
func mergeHydrated(s *model.GuestState, loaded map[string][]byte) []string {
	var merged []string

	fillEmpty(loaded, model.SliceSchedules, &s.Schedules, &merged)
	fillEmpty(loaded, model.SliceScheduleLogs, &s.EscalationLog, &merged)
	fillEmpty(loaded, model.SliceFences, &s.Fences, &merged)
	fillEmpty(loaded, model.SliceFenceLogs, &s.FenceEvents, &merged)
	fillEmpty(loaded, model.SliceContacts, &s.Contacts, &merged)
	fillEmpty(loaded, model.SliceRelationships, &s.Relationships, &merged)
	fillEmpty(loaded, model.SliceOfflineQueue, &s.Queue, &merged)

	return merged
}

// fillEmpty 只在目标切片仍为空时回灌。先解析进局部变量，
// 全部解析成功才赋值——坏数据跳过该切片，绝不留半截。
func fillEmpty[T any](loaded map[string][]byte, slice string, dst *[]T, merged *[]string) {
	data, ok := loaded[slice]
	if !ok || len(*dst) != 0 {
		return
	}

	var parsed []T
	if err := json.Unmarshal(data, &parsed); err != nil {
		return
	}

	*dst = parsed
	*merged = append(*merged, slice)
}

// ========== 打卡计划 ==========

// CreateSchedule 创建计划，先校验再变更，不产生半成品。
func (c *Container) CreateSchedule(ctx context.Context, req model.CreateScheduleRequest) (model.CheckInSchedule, error) {
	grace := c.opts.DefaultGraceMinutes
	if req.GraceMinutes != nil {
		grace = *req.GraceMinutes
	}

	frequency := model.Frequency(req.Frequency)
	if err := model.ValidateSchedule(req.Name, frequency, req.TimeOfDay, grace); err != nil {
		return model.CheckInSchedule{}, err
	}

	now := time.Now()
	sch := model.CheckInSchedule{
		ID:           nextID(),
		Name:         req.Name,
		Frequency:    frequency,
		TimeOfDay:    req.TimeOfDay,
		Contacts:     append([]int64(nil), req.Contacts...),
		GraceMinutes: grace,
		NextDueAt:    schedule.ComputeNextDue(frequency, req.TimeOfDay, now),
		Status:       model.ScheduleStatusOK,
		CreatedAt:    now.UnixMilli(),
		UpdatedAt:    now.UnixMilli(),
	}

	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		s.Schedules = append(s.Schedules, sch)
		return []string{model.SliceSchedules}, nil
	})
	if err != nil {
		return model.CheckInSchedule{}, err
	}

	return sch, nil
}

// UpdateSchedule 编辑计划。频率或时间变化会立即重算 nextDueAt
// 并清掉升级标记——编辑视同一次隐式确认。
func (c *Container) UpdateSchedule(ctx context.Context, id int64, req model.UpdateScheduleRequest) (model.CheckInSchedule, error) {
	var updated model.CheckInSchedule

	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		idx := s.ScheduleByID(id)
		if idx < 0 {
			return nil, apperrors.ScheduleNotFound
		}

		sch := s.Schedules[idx]
		cycleReset := false

		if req.Name != nil {
			sch.Name = *req.Name
		}
		if req.Frequency != nil {
			sch.Frequency = model.Frequency(*req.Frequency)
			cycleReset = true
		}
		if req.TimeOfDay != nil {
			sch.TimeOfDay = *req.TimeOfDay
			cycleReset = true
		}
		if req.Contacts != nil {
			sch.Contacts = append([]int64(nil), (*req.Contacts)...)
		}
		if req.GraceMinutes != nil {
			sch.GraceMinutes = *req.GraceMinutes
		}

		if err := model.ValidateSchedule(sch.Name, sch.Frequency, sch.TimeOfDay, sch.GraceMinutes); err != nil {
			return nil, err
		}

		now := time.Now()
		if cycleReset {
			sch = schedule.Acknowledge(sch, now)
		} else {
			sch.UpdatedAt = now.UnixMilli()
		}

		s.Schedules[idx] = sch
		updated = sch
		return []string{model.SliceSchedules}, nil
	})
	if err != nil {
		return model.CheckInSchedule{}, err
	}

	return updated, nil
}

// DeleteSchedule 显式删除。
func (c *Container) DeleteSchedule(ctx context.Context, id int64) error {
	return c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		idx := s.ScheduleByID(id)
		if idx < 0 {
			return nil, apperrors.ScheduleNotFound
		}
		s.Schedules = append(s.Schedules[:idx], s.Schedules[idx+1:]...)
		return []string{model.SliceSchedules}, nil
	})
}

// Acknowledge 平安确认。永远基于锁内最新状态计算，
// 不用调用方手里的旧快照，保证不会被一个在途 tick 的结果覆盖。
func (c *Container) Acknowledge(ctx context.Context, id int64) (model.AcknowledgeResponse, error) {
	var resp model.AcknowledgeResponse

	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		idx := s.ScheduleByID(id)
		if idx < 0 {
			return nil, apperrors.ScheduleNotFound
		}

		now := time.Now()
		sch := schedule.Acknowledge(s.Schedules[idx], now)
		s.Schedules[idx] = sch

		resp = model.AcknowledgeResponse{
			ScheduleID:   sch.ID,
			Status:       string(sch.Status),
			NextDueAt:    sch.NextDueAt,
			Acknowledged: sch.LastCheckedInAt,
		}
		return []string{model.SliceSchedules}, nil
	})
	if err != nil {
		return model.AcknowledgeResponse{}, err
	}

	metrics.RecordAcknowledgement(ctx)
	return resp, nil
}

// Tick 对该 guest 的全部计划做一次状态机求值并落盘。
// 升级项：写日志、入离线队列（通知联系人的动作延后投递）、
// 尽力弹本地通知。返回新产生的升级日志。
func (c *Container) Tick(ctx context.Context, now time.Time) []model.EscalationEntry {
	var fired []model.EscalationEntry

	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		result := schedule.Tick(s.Schedules, now)
		if !result.Changed() {
			return nil, errNoChanges
		}

		s.Schedules = result.Schedules
		touched := []string{model.SliceSchedules}

		if len(result.Escalations) == 0 {
			return touched, nil
		}

		for i := range result.Escalations {
			entry := result.Escalations[i]
			entry.ID = nextID()
			s.EscalationLog = append(s.EscalationLog, entry)
			fired = append(fired, entry)

			idx := s.ScheduleByID(entry.ScheduleID)
			var contacts []int64
			var name string
			if idx >= 0 {
				contacts = append([]int64(nil), s.Schedules[idx].Contacts...)
				name = s.Schedules[idx].Name
			}

			s.Queue = append(s.Queue, model.OfflineQueueItem{
				ID:        nextID(),
				Type:      model.ActionNotifyContacts,
				CreatedAt: entry.OccurredAt,
				Status:    model.QueueStatusPending,
				Payload: map[string]interface{}{
					"escalation_id": entry.ID,
					"schedule_id":   entry.ScheduleID,
					"schedule_name": name,
					"contacts":      contacts,
					"message":       entry.Message,
				},
			})
		}

		s.EscalationLog = pruneEscalations(s.EscalationLog, c.opts.EscalationLogMax)

		touched = append(touched, model.SliceScheduleLogs, model.SliceOfflineQueue)
		return touched, nil
	})
	if err != nil {
		c.logger.Error("Check-in tick failed",
			zap.Int64("guest_id", c.guestID),
			zap.Error(err),
		)
		return nil
	}

	for _, entry := range fired {
		metrics.RecordEscalation(ctx, entry.ScheduleID)

		if c.sink != nil {
			// 无通知权限/通道失败不影响已写入的日志
			if err := c.sink.Notify(ctx, c.guestID, "Missed check-in", entry.Message); err != nil {
				c.logger.Warn("Local notification failed",
					zap.Int64("guest_id", c.guestID),
					zap.Error(err),
				)
			}
		}
	}

	return fired
}

// pruneEscalations 只保留最近 max 条。
func pruneEscalations(log []model.EscalationEntry, max int) []model.EscalationEntry {
	if max <= 0 || len(log) <= max {
		return log
	}
	return append([]model.EscalationEntry(nil), log[len(log)-max:]...)
}

// ========== 地理围栏 ==========

// CreateFence 创建围栏。
func (c *Container) CreateFence(ctx context.Context, req model.CreateFenceRequest) (model.GeofenceDefinition, error) {
	if err := model.ValidateFence(req.Name, req.Lat, req.Lng, req.RadiusMeters); err != nil {
		return model.GeofenceDefinition{}, err
	}

	now := time.Now().UnixMilli()
	fence := model.GeofenceDefinition{
		ID:           nextID(),
		Name:         req.Name,
		Lat:          req.Lat,
		Lng:          req.Lng,
		RadiusMeters: req.RadiusMeters,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		s.Fences = append(s.Fences, fence)
		return []string{model.SliceFences}, nil
	})
	if err != nil {
		return model.GeofenceDefinition{}, err
	}

	return fence, nil
}

// UpdateFence 编辑围栏。
func (c *Container) UpdateFence(ctx context.Context, id int64, req model.UpdateFenceRequest) (model.GeofenceDefinition, error) {
	var updated model.GeofenceDefinition

	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		idx := s.FenceByID(id)
		if idx < 0 {
			return nil, apperrors.FenceNotFound
		}

		fence := s.Fences[idx]
		if req.Name != nil {
			fence.Name = *req.Name
		}
		if req.Lat != nil {
			fence.Lat = *req.Lat
		}
		if req.Lng != nil {
			fence.Lng = *req.Lng
		}
		if req.RadiusMeters != nil {
			fence.RadiusMeters = *req.RadiusMeters
		}

		if err := model.ValidateFence(fence.Name, fence.Lat, fence.Lng, fence.RadiusMeters); err != nil {
			return nil, err
		}

		fence.UpdatedAt = time.Now().UnixMilli()
		s.Fences[idx] = fence
		updated = fence
		return []string{model.SliceFences}, nil
	})
	if err != nil {
		return model.GeofenceDefinition{}, err
	}

	return updated, nil
}

// DeleteFence 删除围栏，同时清掉在内标记，避免幽灵 exit。
func (c *Container) DeleteFence(ctx context.Context, id int64) error {
	return c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		idx := s.FenceByID(id)
		if idx < 0 {
			return nil, apperrors.FenceNotFound
		}
		s.Fences = append(s.Fences[:idx], s.Fences[idx+1:]...)
		delete(s.InsideFences, id)
		return []string{model.SliceFences}, nil
	})
}

// RecordPosition 接收一个位置样本并求值围栏穿越。
// 没有位置时引擎根本不会被调用，所以不会产生虚假 exit。
func (c *Container) RecordPosition(ctx context.Context, pos model.Position) (model.PositionResponse, error) {
	if pos.Lat < -90 || pos.Lat > 90 || pos.Lng < -180 || pos.Lng > 180 {
		return model.PositionResponse{}, apperrors.FenceCoordsInvalid
	}
	if pos.Timestamp == 0 {
		pos.Timestamp = time.Now().UnixMilli()
	}

	var resp model.PositionResponse

	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		inside, events := geofence.Evaluate(pos, s.Fences, s.InsideFences)

		s.InsideFences = inside
		s.LastPosition = &pos
		touched := []string{}

		for i := range events {
			events[i].ID = nextID()
			s.FenceEvents = append(s.FenceEvents, events[i])

			s.Queue = append(s.Queue, model.OfflineQueueItem{
				ID:        nextID(),
				Type:      model.ActionFenceAlert,
				CreatedAt: events[i].OccurredAt,
				Status:    model.QueueStatusPending,
				Payload: map[string]interface{}{
					"event_id":   events[i].ID,
					"fence_id":   events[i].FenceID,
					"fence_name": events[i].FenceName,
					"event_type": string(events[i].Type),
				},
			})
		}

		if len(events) > 0 {
			s.FenceEvents = pruneFenceEvents(s.FenceEvents, c.opts.FenceEventLogMax)
			touched = append(touched, model.SliceFenceLogs, model.SliceOfflineQueue)
		}

		resp.Events = events
		for id := range inside {
			resp.Inside = append(resp.Inside, id)
		}
		return touched, nil
	})
	if err != nil {
		return model.PositionResponse{}, err
	}

	for _, ev := range resp.Events {
		metrics.RecordFenceEvent(ctx, string(ev.Type))
	}

	return resp, nil
}

// pruneFenceEvents 只保留最近 max 条。
func pruneFenceEvents(log []model.GeofenceEvent, max int) []model.GeofenceEvent {
	if max <= 0 || len(log) <= max {
		return log
	}
	return append([]model.GeofenceEvent(nil), log[len(log)-max:]...)
}

// PruneLogs 定期裁剪两个追加日志。
func (c *Container) PruneLogs(ctx context.Context) {
	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		escBefore, fenceBefore := len(s.EscalationLog), len(s.FenceEvents)

		s.EscalationLog = pruneEscalations(s.EscalationLog, c.opts.EscalationLogMax)
		s.FenceEvents = pruneFenceEvents(s.FenceEvents, c.opts.FenceEventLogMax)

		if len(s.EscalationLog) == escBefore && len(s.FenceEvents) == fenceBefore {
			return nil, errNoChanges
		}
		return []string{model.SliceScheduleLogs, model.SliceFenceLogs}, nil
	})
	if err != nil {
		c.logger.Warn("Log prune failed", zap.Int64("guest_id", c.guestID), zap.Error(err))
	}
}

// ========== 联系人与档案 ==========

// CreateContact 创建紧急联系人。
func (c *Container) CreateContact(ctx context.Context, req model.CreateContactRequest) (model.Contact, error) {
	if err := model.ValidateContact(req.DisplayName); err != nil {
		return model.Contact{}, err
	}

	contact := model.Contact{
		ID:           nextID(),
		DisplayName:  req.DisplayName,
		Relationship: req.Relationship,
		Phone:        req.Phone,
		Priority:     req.Priority,
		CreatedAt:    time.Now().UnixMilli(),
	}

	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		s.Contacts = append(s.Contacts, contact)
		return []string{model.SliceContacts}, nil
	})
	if err != nil {
		return model.Contact{}, err
	}

	return contact, nil
}

// DeleteContact 删除联系人。
func (c *Container) DeleteContact(ctx context.Context, id int64) error {
	return c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		for i := range s.Contacts {
			if s.Contacts[i].ID == id {
				s.Contacts = append(s.Contacts[:i], s.Contacts[i+1:]...)
				return []string{model.SliceContacts}, nil
			}
		}
		return nil, apperrors.ContactNotFound
	})
}

// UpdateProfile 更新档案与自由设置字段。
func (c *Container) UpdateProfile(ctx context.Context, req model.UpdateProfileRequest) error {
	return c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		if req.DisplayName != nil {
			s.Profile.DisplayName = *req.DisplayName
		}
		if req.Phone != nil {
			s.Profile.Phone = *req.Phone
		}
		if req.Language != nil {
			s.Profile.Language = *req.Language
		}
		for k, v := range req.Extra {
			if s.Profile.Extra == nil {
				s.Profile.Extra = map[string]interface{}{}
			}
			s.Profile.Extra[k] = v
		}
		for k, v := range req.Settings {
			if s.Settings == nil {
				s.Settings = map[string]interface{}{}
			}
			s.Settings[k] = v
		}
		// 档案/设置只存于 fast 快照，不占 bulk collection
		return nil, nil
	})
}

// ========== 离线队列 ==========

// Enqueue 追加一个待投递动作，同步返回其 ID。
func (c *Container) Enqueue(ctx context.Context, actionType string, payload map[string]interface{}) (int64, error) {
	if actionType == "" {
		return 0, apperrors.QueueItemTypeRequired
	}

	id := nextID()
	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		s.Queue = append(s.Queue, model.OfflineQueueItem{
			ID:        id,
			Type:      actionType,
			Payload:   payload,
			CreatedAt: time.Now().UnixMilli(),
			Status:    model.QueueStatusPending,
		})
		return []string{model.SliceOfflineQueue}, nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// StartDrain 开始一轮 drain。已有 drain 在途或没有待投递项时返回 false。
// 成功时把待投项标成 processing、同步状态标成 syncing，按入队顺序返回待投项。
func (c *Container) StartDrain(ctx context.Context) ([]model.OfflineQueueItem, bool) {
	c.drainMu.Lock()
	if c.draining {
		c.drainMu.Unlock()
		return nil, false
	}
	c.draining = true
	c.drainMu.Unlock()

	var items []model.OfflineQueueItem

	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		for i := range s.Queue {
			if s.Queue[i].Status == model.QueueStatusPending || s.Queue[i].Status == model.QueueStatusFailed {
				s.Queue[i].Status = model.QueueStatusProcessing
				items = append(items, s.Queue[i])
			}
		}
		if len(items) == 0 {
			return nil, errNoChanges
		}
		s.SyncStatus = model.SyncStatusSyncing
		return []string{model.SliceOfflineQueue}, nil
	})
	if err != nil || len(items) == 0 {
		c.drainMu.Lock()
		c.draining = false
		c.drainMu.Unlock()
		return nil, false
	}

	return items, true
}

// CompleteItem 投递成功：移出队列，不再重试。
func (c *Container) CompleteItem(ctx context.Context, id int64) {
	_ = c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		for i := range s.Queue {
			if s.Queue[i].ID == id {
				s.Queue = append(s.Queue[:i], s.Queue[i+1:]...)
				return []string{model.SliceOfflineQueue}, nil
			}
		}
		return nil, errNoChanges
	})
}

// FailItem 投递失败：标 failed 留在原位，等下一轮重试。
func (c *Container) FailItem(ctx context.Context, id int64) {
	_ = c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		for i := range s.Queue {
			if s.Queue[i].ID == id {
				s.Queue[i].Status = model.QueueStatusFailed
				return []string{model.SliceOfflineQueue}, nil
			}
		}
		return nil, errNoChanges
	})
}

// FinishDrain 结束一轮 drain：残留的 processing/failed 回退成 pending
// 以便下轮重试；队列空则 idle，有剩余则 pending，硬失败标 error。
func (c *Container) FinishDrain(ctx context.Context, hardFailure bool) model.SyncStatus {
	var status model.SyncStatus

	_ = c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		for i := range s.Queue {
			if s.Queue[i].Status == model.QueueStatusProcessing || s.Queue[i].Status == model.QueueStatusFailed {
				s.Queue[i].Status = model.QueueStatusPending
			}
		}

		switch {
		case hardFailure:
			s.SyncStatus = model.SyncStatusError
		case len(s.Queue) == 0:
			s.SyncStatus = model.SyncStatusIdle
		default:
			s.SyncStatus = model.SyncStatusPending
		}

		status = s.SyncStatus
		return []string{model.SliceOfflineQueue}, nil
	})

	c.drainMu.Lock()
	c.draining = false
	c.drainMu.Unlock()

	return status
}
