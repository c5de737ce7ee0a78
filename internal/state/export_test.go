package state

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StaySafe/internal/model"
	apperrors "StaySafe/pkg/errors"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _, _ := newTestContainer(t, 1)
	dst, _, _ := newTestContainer(t, 2)

	name := "Ada"
	require.NoError(t, src.UpdateProfile(ctx, model.UpdateProfileRequest{
		DisplayName: &name,
		Settings:    map[string]interface{}{"theme": "dark"},
	}))
	_, err := src.CreateContact(ctx, model.CreateContactRequest{DisplayName: "Bob", Priority: 1})
	require.NoError(t, err)
	_, err = src.CreateFence(ctx, model.CreateFenceRequest{Name: "home", Lat: -26.2041, Lng: 28.0473, RadiusMeters: 300})
	require.NoError(t, err)
	_, err = src.CreateSchedule(ctx, model.CreateScheduleRequest{Name: "evening", Frequency: "daily", TimeOfDay: "18:00"})
	require.NoError(t, err)

	// 目标侧先让自己身处某个围栏内，导入换掉围栏集合后在内标记必须清空
	fence, err := dst.CreateFence(ctx, model.CreateFenceRequest{Name: "office", Lat: 0, Lng: 0, RadiusMeters: 500})
	require.NoError(t, err)
	_, err = dst.RecordPosition(ctx, model.Position{Lat: 0, Lng: 0, Timestamp: 1000})
	require.NoError(t, err)
	require.True(t, dst.Snapshot().InsideFences[fence.ID])

	doc := src.Export()
	assert.Equal(t, model.ExportVersion, doc.Version)
	assert.NotEmpty(t, doc.ExportedAt)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	result := dst.Import(ctx, raw)
	require.True(t, result.Success, "import failed with code %s", result.Code)
	assert.ElementsMatch(t, []string{"profile", "settings", "contacts", "geofences", "check_in_schedules"}, result.Merged)

	srcSnap := src.Snapshot()
	dstSnap := dst.Snapshot()

	assert.Equal(t, "Ada", dstSnap.Profile.DisplayName)
	assert.Equal(t, "dark", dstSnap.Settings["theme"])
	assert.Equal(t, srcSnap.Contacts, dstSnap.Contacts)
	assert.Equal(t, srcSnap.Fences, dstSnap.Fences)
	assert.Equal(t, srcSnap.Schedules, dstSnap.Schedules)
	assert.Empty(t, dstSnap.InsideFences)
}

func TestImportRejectsMissingRequiredFields(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		raw  string
		code string
	}{
		{"not json", `{"version":`, apperrors.ImportFormatInvalid.Code},
		{"missing version", `{"profile":{"display_name":"Ada"}}`, apperrors.ImportVersionMissing.Code},
		{"missing profile", `{"version":1,"contacts":[{"id":9,"display_name":"X"}]}`, apperrors.ImportProfileMissing.Code},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _, _ := newTestContainer(t, 1)
			_, err := c.CreateContact(ctx, model.CreateContactRequest{DisplayName: "existing"})
			require.NoError(t, err)
			before := c.Snapshot()

			result := c.Import(ctx, []byte(tc.raw))
			assert.False(t, result.Success)
			assert.Equal(t, tc.code, result.Code)

			// 失败导入不留下半合并的聚合
			after := c.Snapshot()
			assert.Equal(t, before.Contacts, after.Contacts)
			assert.Equal(t, before.Profile, after.Profile)
		})
	}
}

func TestImportPartialDocumentLeavesOtherFieldsAlone(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	contact, err := c.CreateContact(ctx, model.CreateContactRequest{DisplayName: "keep me"})
	require.NoError(t, err)

	result := c.Import(ctx, []byte(`{"version":1,"profile":{"display_name":"Ada"}}`))
	require.True(t, result.Success)
	assert.Equal(t, []string{"profile"}, result.Merged)

	snap := c.Snapshot()
	assert.Equal(t, "Ada", snap.Profile.DisplayName)
	require.Len(t, snap.Contacts, 1)
	assert.Equal(t, contact.ID, snap.Contacts[0].ID)
}

func TestImportEmptyCollectionsOverwrite(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestContainer(t, 1)

	_, err := c.CreateContact(ctx, model.CreateContactRequest{DisplayName: "old"})
	require.NoError(t, err)

	// 显式出现的空集合是"清空"，不是"跳过"
	result := c.Import(ctx, []byte(`{"version":1,"profile":{"display_name":"Ada"},"contacts":[]}`))
	require.True(t, result.Success)
	assert.Empty(t, c.Snapshot().Contacts)
}
