package model

// ExportVersion 当前导出文档版本。
const ExportVersion = 1

// ExportDocument 带版本号的聚合导出文档。
// 导入时只认识这里列出的字段，未知字段保持现状不被触碰。
type ExportDocument struct {
	Version          int                    `json:"version"`
	ExportedAt       string                 `json:"exported_at"`
	Profile          *Profile               `json:"profile,omitempty"`
	Settings         map[string]interface{} `json:"settings,omitempty"`
	Contacts         []Contact              `json:"contacts,omitempty"`
	Relationships    []Relationship         `json:"relationships,omitempty"`
	Geofences        []GeofenceDefinition   `json:"geofences,omitempty"`
	CheckInSchedules []CheckInSchedule      `json:"check_in_schedules,omitempty"`
}

// ImportResult 导入结果。失败时聚合保持完全不变。
type ImportResult struct {
	Success bool     `json:"success"`
	Merged  []string `json:"merged,omitempty"` // 实际合并的字段名
	Code    string   `json:"code,omitempty"`   // 失败原因错误码
}

// StateSlice bulk 层的一条记录：某 guest 的某个 collection 的 JSON 编码。
type StateSlice struct {
	BaseModel
	GuestID int64  `gorm:"not null;uniqueIndex:idx_state_slices_guest_slice" json:"guest_id"`
	Slice   string `gorm:"type:varchar(32);not null;uniqueIndex:idx_state_slices_guest_slice" json:"slice"`
	Data    []byte `gorm:"type:jsonb;not null;default:'null'" json:"data"`
}

// TableName 指定表名
func (StateSlice) TableName() string {
	return "state_slices"
}

// NotificationDecision worker 消费离线动作后落库的"决定发起通知"记录。
// 实际投递通道（短信/微信/邮件）在核心之外。
type NotificationDecision struct {
	BaseModel
	GuestID   int64  `gorm:"not null;index:idx_notification_decisions_guest" json:"guest_id"`
	ItemID    int64  `gorm:"not null;uniqueIndex" json:"item_id"` // 离线队列项 ID，天然幂等键
	Category  string `gorm:"type:varchar(32);not null" json:"category"`
	Message   string `gorm:"type:text;not null;default:''" json:"message"`
	DecidedAt int64  `gorm:"not null" json:"decided_at"`
}

// TableName 指定表名
func (NotificationDecision) TableName() string {
	return "notification_decisions"
}
