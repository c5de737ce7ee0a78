package state

// 聚合的版本化导出/导入。导入先整体校验再一次性合并，
// 任何格式错误都原子地放弃，绝不留下半合并的聚合。

import (
	"context"
	"encoding/json"
	"time"

	"StaySafe/internal/model"
	apperrors "StaySafe/pkg/errors"
)

// Export 把当前聚合（档案、设置、联系人、关系、围栏、打卡计划）
// 序列化成带版本号的导出文档。
func (c *Container) Export() model.ExportDocument {
	snap := c.Snapshot()

	profile := snap.Profile
	return model.ExportDocument{
		Version:          model.ExportVersion,
		ExportedAt:       time.Now().UTC().Format(time.RFC3339),
		Profile:          &profile,
		Settings:         snap.Settings,
		Contacts:         snap.Contacts,
		Relationships:    snap.Relationships,
		Geofences:        snap.Fences,
		CheckInSchedules: snap.Schedules,
	}
}

// Import 读入导出文档并合并已识别字段。
// version 和 profile 是必填项，缺失即失败且聚合完全不变；
// 未识别/缺失的字段保持现状。
func (c *Container) Import(ctx context.Context, raw []byte) model.ImportResult {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.ImportResult{Success: false, Code: apperrors.ImportFormatInvalid.Code}
	}

	if _, ok := fields["version"]; !ok {
		return model.ImportResult{Success: false, Code: apperrors.ImportVersionMissing.Code}
	}
	if _, ok := fields["profile"]; !ok {
		return model.ImportResult{Success: false, Code: apperrors.ImportProfileMissing.Code}
	}

	// 先完整解析，全部成功才进入合并——保证原子性
	var doc model.ExportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.ImportResult{Success: false, Code: apperrors.ImportFormatInvalid.Code}
	}

	var merged []string

	err := c.Update(ctx, func(s *model.GuestState) ([]string, error) {
		var touched []string

		if doc.Profile != nil {
			s.Profile = *doc.Profile
			merged = append(merged, "profile")
		}
		if _, ok := fields["settings"]; ok && doc.Settings != nil {
			s.Settings = doc.Settings
			merged = append(merged, "settings")
		}
		if _, ok := fields["contacts"]; ok {
			s.Contacts = doc.Contacts
			merged = append(merged, "contacts")
			touched = append(touched, model.SliceContacts)
		}
		if _, ok := fields["relationships"]; ok {
			s.Relationships = doc.Relationships
			merged = append(merged, "relationships")
			touched = append(touched, model.SliceRelationships)
		}
		if _, ok := fields["geofences"]; ok {
			s.Fences = doc.Geofences
			// 围栏集合整体换掉后，旧的在内标记不再可信
			s.InsideFences = map[int64]bool{}
			merged = append(merged, "geofences")
			touched = append(touched, model.SliceFences)
		}
		if _, ok := fields["check_in_schedules"]; ok {
			s.Schedules = doc.CheckInSchedules
			merged = append(merged, "check_in_schedules")
			touched = append(touched, model.SliceSchedules)
		}

		return touched, nil
	})
	if err != nil {
		return model.ImportResult{Success: false, Code: apperrors.ImportFormatInvalid.Code}
	}

	return model.ImportResult{Success: true, Merged: merged}
}
