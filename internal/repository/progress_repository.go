package repository

import (
	"context"
	"training_tracker_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 体能测试进步记录
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Upsert 按 (user_id, test_type) 插入或更新
func (r *ProgressRepository) Upsert(ctx context.Context, p *model.ProgressTracking) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "test_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"baseline_value", "current_value", "percentage_increase", "last_updated",
		}),
	}).Create(p).Error
}

func (r *ProgressRepository) DeleteByUser(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.ProgressTracking{}).Error
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID uint) ([]model.ProgressTracking, error) {
	var rows []model.ProgressTracking
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("test_type ASC").Find(&rows).Error
	return rows, err
}
