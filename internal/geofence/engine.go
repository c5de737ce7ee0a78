package geofence

// 围栏穿越检测：对相邻两次位置样本之间的状态翻转发事件，
// 纯函数，不落日志，由调用方持久化返回值。

import (
	"math"

	"StaySafe/internal/model"
)

// earthRadiusKm haversine 用的地球半径
const earthRadiusKm = 6371.0

// HaversineKm 返回两点间大圆距离，单位公里。
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Inside 判断位置是否在围栏内。距离先按公里算再换算成米与半径比较，
// 边界相等算在内（闭圆盘）。
func Inside(pos model.Position, fence model.GeofenceDefinition) bool {
	distanceMeters := HaversineKm(pos.Lat, pos.Lng, fence.Lat, fence.Lng) * 1000
	return distanceMeters <= fence.RadiusMeters
}

// Evaluate 用当前位置对围栏集求值。
// prior 是上一次样本时的在内集合；enter 只在 false→true 翻转时发出，
// exit 只在 true→false 翻转时发出，所以静止位置重复求值不会产生新事件，
// 同一围栏也不可能连续两次 enter。事件 ID 由调用方补齐。
// 迭代顺序跟随 fences 切片顺序，保证事件追加顺序稳定。
func Evaluate(pos model.Position, fences []model.GeofenceDefinition, prior map[int64]bool) (map[int64]bool, []model.GeofenceEvent) {
	inside := make(map[int64]bool, len(fences))
	var events []model.GeofenceEvent

	for _, fence := range fences {
		now := Inside(pos, fence)
		was := prior[fence.ID]

		if now {
			inside[fence.ID] = true
		}

		if now == was {
			continue
		}

		eventType := model.GeofenceEventEnter
		if was {
			eventType = model.GeofenceEventExit
		}

		events = append(events, model.GeofenceEvent{
			FenceID:    fence.ID,
			FenceName:  fence.Name,
			Type:       eventType,
			OccurredAt: pos.Timestamp,
		})
	}

	return inside, events
}
