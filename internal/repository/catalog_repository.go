package repository

import (
	"context"
	"time"
	"training_tracker_backend/internal/model"
	"training_tracker_backend/internal/util"

	"gorm.io/gorm"
)

// CatalogRepository 训练周期与课程目录，积分引擎只读
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

// FindSession 查询课程并预加载所属周期
func (r *CatalogRepository) FindSession(ctx context.Context, id uint) (*model.Session, error) {
	var session model.Session
	if err := r.DB.WithContext(ctx).Preload("Block").First(&session, id).Error; err != nil {
		return nil, translateNotFound(err, util.ErrSessionNotFound)
	}
	return &session, nil
}

// ListWeekSessions 某周期某一周的全部课程，按发布日期排序
func (r *CatalogRepository) ListWeekSessions(ctx context.Context, blockID uint, week int) ([]model.Session, error) {
	var sessions []model.Session
	err := r.DB.WithContext(ctx).
		Where("block_id = ? AND week_number = ?", blockID, week).
		Order("release_date ASC, id ASC").
		Find(&sessions).Error
	return sessions, err
}

// ListReleasedBetween 发布日期落在 [from, to] 内的课程，可按类型过滤
func (r *CatalogRepository) ListReleasedBetween(ctx context.Context, from, to time.Time, types ...model.SessionType) ([]model.Session, error) {
	var sessions []model.Session
	q := r.DB.WithContext(ctx).Where("release_date BETWEEN ? AND ?", from.UTC(), to.UTC())
	if len(types) > 0 {
		q = q.Where("session_type IN ?", types)
	}
	err := q.Order("release_date ASC, id ASC").Find(&sessions).Error
	return sessions, err
}

// ListTrainingIDsReleasedBy 截至 at 已发布的训练课ID
func (r *CatalogRepository) ListTrainingIDsReleasedBy(ctx context.Context, at time.Time) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Session{}).
		Where("session_type = ? AND release_date <= ?", model.SessionTraining, at.UTC()).
		Pluck("id", &ids).Error
	return ids, err
}
