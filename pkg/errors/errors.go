package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	Unauthorized                    = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	TooManyRequests                 = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests, please retry later"}
	InvalidGuestID                  = Definition{Code: "INVALID_GUEST_ID", Message: "Invalid guest ID format"}
	ErrTokenGeneratorNotInitialized = Definition{Code: "TOKEN_GENERATOR_NOT_INITIALIZED", Message: "Token generator not initialized"}
)

// 打卡计划模块错误。
var (
	ScheduleNameRequired     = Definition{Code: "SCHEDULE_NAME_REQUIRED", Message: "Schedule name required"}
	ScheduleFrequencyInvalid = Definition{Code: "SCHEDULE_FREQUENCY_INVALID", Message: "Schedule frequency invalid"}
	ScheduleTimeInvalid      = Definition{Code: "SCHEDULE_TIME_INVALID", Message: "Schedule time of day invalid, expected HH:MM"}
	ScheduleGraceInvalid     = Definition{Code: "SCHEDULE_GRACE_INVALID", Message: "Schedule grace minutes must be non-negative"}
	ScheduleNotFound         = Definition{Code: "SCHEDULE_NOT_FOUND", Message: "Schedule not found"}
)

// 地理围栏模块错误。
var (
	FenceNameRequired   = Definition{Code: "FENCE_NAME_REQUIRED", Message: "Fence name required"}
	FenceRadiusInvalid  = Definition{Code: "FENCE_RADIUS_INVALID", Message: "Fence radius must be positive"}
	FenceCoordsInvalid  = Definition{Code: "FENCE_COORDS_INVALID", Message: "Fence coordinates out of range"}
	FenceNotFound       = Definition{Code: "FENCE_NOT_FOUND", Message: "Fence not found"}
	PositionCoordsEmpty = Definition{Code: "POSITION_COORDS_EMPTY", Message: "Position coordinates missing"}
)

// 联系人模块错误。
var (
	ContactNameRequired = Definition{Code: "CONTACT_NAME_REQUIRED", Message: "Contact name required"}
	ContactNotFound     = Definition{Code: "CONTACT_NOT_FOUND", Message: "Contact not found"}
)

// 导入导出模块错误。
var (
	ImportVersionMissing = Definition{Code: "IMPORT_VERSION_MISSING", Message: "Import document missing version field"}
	ImportProfileMissing = Definition{Code: "IMPORT_PROFILE_MISSING", Message: "Import document missing profile field"}
	ImportFormatInvalid  = Definition{Code: "IMPORT_FORMAT_INVALID", Message: "Import document is not valid JSON"}
)

// 离线队列模块错误。
var (
	QueueItemTypeRequired = Definition{Code: "QUEUE_ITEM_TYPE_REQUIRED", Message: "Queue item type required"}
	QueueDrainFailed      = Definition{Code: "QUEUE_DRAIN_FAILED", Message: "Queue drain failed"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:             Unauthorized,
	TooManyRequests.Code:          TooManyRequests,
	InvalidGuestID.Code:           InvalidGuestID,
	ScheduleNameRequired.Code:     ScheduleNameRequired,
	ScheduleFrequencyInvalid.Code: ScheduleFrequencyInvalid,
	ScheduleTimeInvalid.Code:      ScheduleTimeInvalid,
	ScheduleGraceInvalid.Code:     ScheduleGraceInvalid,
	ScheduleNotFound.Code:         ScheduleNotFound,
	FenceNameRequired.Code:        FenceNameRequired,
	FenceRadiusInvalid.Code:       FenceRadiusInvalid,
	FenceCoordsInvalid.Code:       FenceCoordsInvalid,
	FenceNotFound.Code:            FenceNotFound,
	PositionCoordsEmpty.Code:      PositionCoordsEmpty,
	ContactNameRequired.Code:      ContactNameRequired,
	ContactNotFound.Code:          ContactNotFound,
	ImportVersionMissing.Code:     ImportVersionMissing,
	ImportProfileMissing.Code:     ImportProfileMissing,
	ImportFormatInvalid.Code:      ImportFormatInvalid,
	QueueItemTypeRequired.Code:    QueueItemTypeRequired,
	QueueDrainFailed.Code:         QueueDrainFailed,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// SkipMessageError 表示消费者应当跳过（ack 而不重投）的消息。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return e.Reason
}

// IsSkipMessageError 判断错误是否表示应跳过该消息。
func IsSkipMessageError(err error) bool {
	_, ok := err.(*SkipMessageError)
	return ok
}
