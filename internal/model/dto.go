package model

// ========== CheckIn 相关 DTO ==========

// CreateScheduleRequest 创建打卡计划请求
type CreateScheduleRequest struct {
	Name         string  `json:"name"`
	Frequency    string  `json:"frequency"`
	TimeOfDay    string  `json:"time_of_day"`
	Contacts     []int64 `json:"contacts"`
	GraceMinutes *int    `json:"grace_minutes"` // 缺省时用配置默认值
}

// UpdateScheduleRequest 编辑打卡计划请求，nil 字段表示不修改。
// 修改频率或时间会立即重算 nextDueAt 并视同一次确认。
type UpdateScheduleRequest struct {
	Name         *string  `json:"name"`
	Frequency    *string  `json:"frequency"`
	TimeOfDay    *string  `json:"time_of_day"`
	Contacts     *[]int64 `json:"contacts"`
	GraceMinutes *int     `json:"grace_minutes"`
}

// AcknowledgeResponse 平安确认响应
type AcknowledgeResponse struct {
	ScheduleID   int64  `json:"schedule_id"`
	Status       string `json:"status"`
	NextDueAt    int64  `json:"next_due_at"`
	Acknowledged int64  `json:"acknowledged_at"`
}

// ========== Geofence 相关 DTO ==========

// CreateFenceRequest 创建围栏请求
type CreateFenceRequest struct {
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters float64 `json:"radius_meters"`
}

// UpdateFenceRequest 编辑围栏请求，nil 字段表示不修改。
type UpdateFenceRequest struct {
	Name         *string  `json:"name"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	RadiusMeters *float64 `json:"radius_meters"`
}

// PositionRequest 位置样本上报请求
type PositionRequest struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
}

// PositionResponse 位置上报响应，返回本次样本触发的围栏事件。
type PositionResponse struct {
	Events []GeofenceEvent `json:"events"`
	Inside []int64         `json:"inside"` // 当前身处的围栏 ID
}

// ========== Contact / Profile 相关 DTO ==========

// CreateContactRequest 创建联系人请求
type CreateContactRequest struct {
	DisplayName  string `json:"display_name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Priority     int    `json:"priority"`
}

// UpdateProfileRequest 更新档案请求
type UpdateProfileRequest struct {
	DisplayName *string                `json:"display_name"`
	Phone       *string                `json:"phone"`
	Language    *string                `json:"language"`
	Extra       map[string]interface{} `json:"extra"`
	Settings    map[string]interface{} `json:"settings"`
}

// ========== Queue 相关 DTO ==========

// QueueStatusData 离线队列状态
type QueueStatusData struct {
	SyncStatus string             `json:"sync_status"`
	Pending    int                `json:"pending"`
	Items      []OfflineQueueItem `json:"items"`
}

// DrainResponse 手动 drain 响应
type DrainResponse struct {
	Attempted  int    `json:"attempted"`
	Delivered  int    `json:"delivered"`
	Remaining  int    `json:"remaining"`
	SyncStatus string `json:"sync_status"`
}
