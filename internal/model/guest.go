package model

// 聚合的 bulk 层 collection 名，一个 collection 对应一条 bulk 记录。
const (
	SliceSchedules     = "schedules"
	SliceScheduleLogs  = "schedule_logs"
	SliceFences        = "fences"
	SliceFenceLogs     = "fence_logs"
	SliceContacts      = "contacts"
	SliceRelationships = "relationships"
	SliceOfflineQueue  = "offline_queue"
)

// AllSlices hydration 时并行读取的 collection 全集。
var AllSlices = []string{
	SliceSchedules,
	SliceScheduleLogs,
	SliceFences,
	SliceFenceLogs,
	SliceContacts,
	SliceRelationships,
	SliceOfflineQueue,
}

// Profile guest 档案。Extra 承接自由格式字段，核心不解释其内容。
type Profile struct {
	DisplayName string                 `json:"display_name"`
	Phone       string                 `json:"phone"`
	Language    string                 `json:"language"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// GuestState 单个 guest 的完整聚合。
// 所有写入都经由 state.Container.Update，其余组件只读快照。
type GuestState struct {
	GuestID       int64                  `json:"guest_id"`
	Profile       Profile                `json:"profile"`
	Settings      map[string]interface{} `json:"settings,omitempty"`
	Contacts      []Contact              `json:"contacts"`
	Relationships []Relationship         `json:"relationships"`
	Schedules     []CheckInSchedule      `json:"schedules"`
	EscalationLog []EscalationEntry      `json:"escalation_log"`
	Fences        []GeofenceDefinition   `json:"fences"`
	FenceEvents   []GeofenceEvent        `json:"fence_events"`
	InsideFences  map[int64]bool         `json:"inside_fences"` // 上一次位置样本时身处哪些围栏内
	Queue         []OfflineQueueItem     `json:"queue"`
	SyncStatus    SyncStatus             `json:"sync_status"`
	LastPosition  *Position              `json:"last_position,omitempty"`
	UpdatedAt     int64                  `json:"updated_at"`
}

// NewGuestState 返回空聚合，所有 collection 均为默认值。
func NewGuestState(guestID int64) *GuestState {
	return &GuestState{
		GuestID:       guestID,
		Settings:      map[string]interface{}{},
		Contacts:      []Contact{},
		Relationships: []Relationship{},
		Schedules:     []CheckInSchedule{},
		EscalationLog: []EscalationEntry{},
		Fences:        []GeofenceDefinition{},
		FenceEvents:   []GeofenceEvent{},
		InsideFences:  map[int64]bool{},
		Queue:         []OfflineQueueItem{},
		SyncStatus:    SyncStatusIdle,
	}
}

// Clone 深拷贝聚合。Update 的 mutator 拿到的就是这样一份副本，
// 原对象在换入新副本前保持不可变。
func (s *GuestState) Clone() *GuestState {
	c := *s

	c.Contacts = append([]Contact(nil), s.Contacts...)
	c.Relationships = append([]Relationship(nil), s.Relationships...)
	c.EscalationLog = append([]EscalationEntry(nil), s.EscalationLog...)
	c.Fences = append([]GeofenceDefinition(nil), s.Fences...)
	c.FenceEvents = append([]GeofenceEvent(nil), s.FenceEvents...)

	c.Schedules = make([]CheckInSchedule, len(s.Schedules))
	for i, sch := range s.Schedules {
		sch.Contacts = append([]int64(nil), sch.Contacts...)
		c.Schedules[i] = sch
	}

	c.Queue = make([]OfflineQueueItem, len(s.Queue))
	for i, item := range s.Queue {
		if item.Payload != nil {
			payload := make(map[string]interface{}, len(item.Payload))
			for k, v := range item.Payload {
				payload[k] = v
			}
			item.Payload = payload
		}
		c.Queue[i] = item
	}

	c.InsideFences = make(map[int64]bool, len(s.InsideFences))
	for k, v := range s.InsideFences {
		c.InsideFences[k] = v
	}

	if s.Settings != nil {
		c.Settings = make(map[string]interface{}, len(s.Settings))
		for k, v := range s.Settings {
			c.Settings[k] = v
		}
	}

	if s.Profile.Extra != nil {
		extra := make(map[string]interface{}, len(s.Profile.Extra))
		for k, v := range s.Profile.Extra {
			extra[k] = v
		}
		c.Profile.Extra = extra
	}

	if s.LastPosition != nil {
		pos := *s.LastPosition
		c.LastPosition = &pos
	}

	return &c
}

// PendingQueueItems 统计待投递项数。
func (s *GuestState) PendingQueueItems() int {
	n := 0
	for _, item := range s.Queue {
		if item.Status == QueueStatusPending {
			n++
		}
	}
	return n
}

// ScheduleByID 按 ID 查找计划，返回索引，未找到时 -1。
func (s *GuestState) ScheduleByID(id int64) int {
	for i := range s.Schedules {
		if s.Schedules[i].ID == id {
			return i
		}
	}
	return -1
}

// FenceByID 按 ID 查找围栏，返回索引，未找到时 -1。
func (s *GuestState) FenceByID(id int64) int {
	for i := range s.Fences {
		if s.Fences[i].ID == id {
			return i
		}
	}
	return -1
}
