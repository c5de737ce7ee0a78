package state

// Manager 维护每个 guest 的容器：首次触达时从 fast 层加载快照、
// 异步补水，monitor 循环通过它遍历所有已加载容器。

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"StaySafe/internal/model"
	"StaySafe/internal/notify"
)

type Manager struct {
	store  Store
	sink   notify.Sink
	logger *zap.Logger
	opts   Options

	mu         sync.Mutex
	containers map[int64]*Container
}

func NewManager(st Store, sink notify.Sink, logger *zap.Logger, opts Options) *Manager {
	return &Manager{
		store:      st,
		sink:       sink,
		logger:     logger,
		opts:       opts,
		containers: make(map[int64]*Container),
	}
}

// Get 返回 guest 的容器，不存在时创建：先同步读 fast 快照作为初始状态
// （保证 reload 后立即可用），再在后台补水 bulk 切片。
// hydration 不阻塞首个请求，补水完成前容器跑在 fast 层状态上。
func (m *Manager) Get(ctx context.Context, guestID int64) *Container {
	m.mu.Lock()
	if c, ok := m.containers[guestID]; ok {
		m.mu.Unlock()
		return c
	}
	m.mu.Unlock()

	initial := m.loadFastState(ctx, guestID)

	m.mu.Lock()
	defer m.mu.Unlock()

	// 二次检查，并发 Get 只留第一个
	if c, ok := m.containers[guestID]; ok {
		return c
	}

	c := NewContainer(guestID, initial, m.store, m.sink, m.logger, m.opts)
	m.containers[guestID] = c

	go c.Hydrate(context.Background())

	return c
}

// loadFastState 读 fast 快照，没有或坏掉就从空聚合开始。
func (m *Manager) loadFastState(ctx context.Context, guestID int64) *model.GuestState {
	data, err := m.store.ReadFast(ctx, guestID)
	if err != nil {
		m.logger.Warn("Fast tier read failed, starting from empty state",
			zap.Int64("guest_id", guestID),
			zap.Error(err),
		)
		return nil
	}
	if data == nil {
		return nil
	}

	var s model.GuestState
	if err := json.Unmarshal(data, &s); err != nil {
		m.logger.Error("Fast tier snapshot corrupt, starting from empty state",
			zap.Int64("guest_id", guestID),
			zap.Error(err),
		)
		return nil
	}

	if s.InsideFences == nil {
		s.InsideFences = map[int64]bool{}
	}
	if s.Settings == nil {
		s.Settings = map[string]interface{}{}
	}

	// 快照可能落在一轮 drain 中途（进程在 FinishDrain 前崩了）：
	// processing 项回退成 pending，否则它们永远不会再被投递
	inFlight := 0
	for i := range s.Queue {
		if s.Queue[i].Status == model.QueueStatusProcessing {
			s.Queue[i].Status = model.QueueStatusPending
			inFlight++
		}
	}
	if s.SyncStatus == model.SyncStatusSyncing {
		if len(s.Queue) > 0 {
			s.SyncStatus = model.SyncStatusPending
		} else {
			s.SyncStatus = model.SyncStatusIdle
		}
	}
	if inFlight > 0 {
		m.logger.Info("Reset in-flight queue items from interrupted drain",
			zap.Int64("guest_id", guestID),
			zap.Int("items", inFlight),
		)
	}

	return &s
}

// Loaded 返回当前所有已加载容器的快照列表，monitor 循环用。
func (m *Manager) Loaded() []*Container {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Container, 0, len(m.containers))
	for _, c := range m.containers {
		out = append(out, c)
	}
	return out
}
