package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"StaySafe/internal/model"
	"StaySafe/storage/database"
)

// GormBulk bulk 层的 PostgreSQL 实现：state_slices 表按
// (guest_id, slice) 唯一键 upsert，切片内容整体作为 jsonb 存放。
type GormBulk struct{}

func NewGormBulk() *GormBulk {
	return &GormBulk{}
}

func (b *GormBulk) Write(ctx context.Context, guestID int64, slice string, data []byte) error {
	row := model.StateSlice{
		GuestID: guestID,
		Slice:   slice,
		Data:    data,
	}

	err := database.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "guest_id"}, {Name: "slice"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"data":       data,
				"updated_at": time.Now(),
			}),
		}).
		Create(&row).Error

	if err != nil {
		return fmt.Errorf("failed to upsert state slice %s: %w", slice, err)
	}

	return nil
}

func (b *GormBulk) Read(ctx context.Context, guestID int64, slice string) ([]byte, error) {
	var row model.StateSlice

	err := database.DB().WithContext(ctx).
		Where("guest_id = ? AND slice = ?", guestID, slice).
		First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state slice %s: %w", slice, err)
	}

	return row.Data, nil
}
