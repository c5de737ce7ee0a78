package model

import (
	"StaySafe/pkg/errors"
)

// GeofenceDefinition 命名的圆形围栏，由用户创建/编辑/删除，无隐式过期。
type GeofenceDefinition struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters float64 `json:"radius_meters"`
	CreatedAt    int64   `json:"created_at"`
	UpdatedAt    int64   `json:"updated_at"`
}

// ValidateFence 在创建/编辑前拒绝非法字段组合。
func ValidateFence(name string, lat, lng, radiusMeters float64) error {
	if name == "" {
		return errors.FenceNameRequired
	}

	if radiusMeters <= 0 {
		return errors.FenceRadiusInvalid
	}

	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return errors.FenceCoordsInvalid
	}

	return nil
}

// GeofenceEventType 围栏事件类型
type GeofenceEventType string

const (
	GeofenceEventEnter GeofenceEventType = "enter"
	GeofenceEventExit  GeofenceEventType = "exit"
)

// GeofenceEvent 围栏穿越日志。同一围栏的相邻事件类型必定交替，
// 不会在已在内部时再次出现 enter。
type GeofenceEvent struct {
	ID         int64             `json:"id"`
	FenceID    int64             `json:"fence_id"`
	FenceName  string            `json:"fence_name"`
	Type       GeofenceEventType `json:"type"`
	OccurredAt int64             `json:"occurred_at"`
}

// Position 宿主提供的位置样本。
type Position struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
}
