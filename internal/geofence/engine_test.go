package geofence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StaySafe/internal/model"
)

func TestHaversineKm(t *testing.T) {
	// 同一点距离为零
	assert.Zero(t, HaversineKm(-26.2041, 28.0473, -26.2041, 28.0473))

	// 纬度差 1 度约 111.2 公里
	d := HaversineKm(0, 0, 1, 0)
	assert.InDelta(t, 111.19, d, 0.2)
}

func TestInsideBoundaryIsClosed(t *testing.T) {
	fence := model.GeofenceDefinition{ID: 1, Name: "home", Lat: -26.2041, Lng: 28.0473}

	// 约 300 米外的一个点，半径取实际距离：边界点算在内
	pos := model.Position{Lat: -26.2041 + 0.0027, Lng: 28.0473}
	distanceMeters := HaversineKm(pos.Lat, pos.Lng, fence.Lat, fence.Lng) * 1000

	fence.RadiusMeters = distanceMeters
	assert.True(t, Inside(pos, fence))

	// 半径短一米就在外
	fence.RadiusMeters = distanceMeters - 1
	assert.False(t, Inside(pos, fence))
}

func TestEvaluateEnterExitAlternation(t *testing.T) {
	fence := model.GeofenceDefinition{ID: 7, Name: "home", Lat: -26.2041, Lng: 28.0473, RadiusMeters: 300}
	fences := []model.GeofenceDefinition{fence}

	insidePos := model.Position{Lat: -26.2041, Lng: 28.0473, Timestamp: 1000}
	outsidePos := model.Position{Lat: -26.2141, Lng: 28.0473, Timestamp: 2000}

	// 外 → 内：enter
	inside, events := Evaluate(insidePos, fences, map[int64]bool{})
	require.Len(t, events, 1)
	assert.Equal(t, model.GeofenceEventEnter, events[0].Type)
	assert.Equal(t, int64(7), events[0].FenceID)
	assert.Equal(t, "home", events[0].FenceName)
	assert.Equal(t, int64(1000), events[0].OccurredAt)
	assert.True(t, inside[7])

	// 静止重复求值：无事件
	inside, events = Evaluate(insidePos, fences, inside)
	assert.Empty(t, events)
	assert.True(t, inside[7])

	// 内 → 外：exit
	inside, events = Evaluate(outsidePos, fences, inside)
	require.Len(t, events, 1)
	assert.Equal(t, model.GeofenceEventExit, events[0].Type)
	assert.False(t, inside[7])

	// 外部静止：依旧无事件
	_, events = Evaluate(outsidePos, fences, inside)
	assert.Empty(t, events)
}

func TestEvaluateMultipleFencesStableOrder(t *testing.T) {
	fences := []model.GeofenceDefinition{
		{ID: 1, Name: "a", Lat: 0, Lng: 0, RadiusMeters: 500},
		{ID: 2, Name: "b", Lat: 0, Lng: 0, RadiusMeters: 1000},
	}

	pos := model.Position{Lat: 0, Lng: 0, Timestamp: 1}

	_, events := Evaluate(pos, fences, map[int64]bool{})
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].FenceID)
	assert.Equal(t, int64(2), events[1].FenceID)
}

func TestEvaluateNoPriorStateNoExit(t *testing.T) {
	fences := []model.GeofenceDefinition{
		{ID: 1, Name: "far", Lat: 50, Lng: 50, RadiusMeters: 100},
	}

	// 从未进入过的围栏，外部样本不会产生幽灵 exit
	_, events := Evaluate(model.Position{Lat: 0, Lng: 0}, fences, map[int64]bool{})
	assert.Empty(t, events)
}
