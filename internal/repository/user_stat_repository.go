package repository

import (
	"context"
	"errors"
	"training_tracker_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardOrder string

const (
	OrderByXP          LeaderboardOrder = "total_xp"
	OrderByConsistency LeaderboardOrder = "consistency_score"
)

// LeaderboardRow 排行榜原始行，名次由服务层计算
type LeaderboardRow struct {
	UserID           uint    `gorm:"column:user_id"`
	Name             string  `gorm:"column:name"`
	TotalXP          int     `gorm:"column:total_xp"`
	StrengthLevel    int     `gorm:"column:strength_level"`
	ConsistencyScore float64 `gorm:"column:consistency_score"`
}

type UserStatRepository struct {
	DB *gorm.DB
}

func NewUserStatRepository(db *gorm.DB) *UserStatRepository {
	return &UserStatRepository{DB: db}
}

// Upsert 按 user_id 插入或整体覆盖
func (r *UserStatRepository) Upsert(ctx context.Context, stat *model.UserStat) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_xp", "strength_level", "sessions_completed",
			"sessions_available", "consistency_score", "last_updated",
		}),
	}).Create(stat).Error
}

// FindByUser 未找到时返回 nil, nil
func (r *UserStatRepository) FindByUser(ctx context.Context, userID uint) (*model.UserStat, error) {
	var stat model.UserStat
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

// ListTop 学生排行榜，同分按姓名排序
func (r *UserStatRepository) ListTop(ctx context.Context, order LeaderboardOrder, limit int) ([]LeaderboardRow, error) {
	if order != OrderByXP && order != OrderByConsistency {
		order = OrderByXP
	}
	var rows []LeaderboardRow
	err := r.DB.WithContext(ctx).Table("user_stats").
		Select("user_stats.user_id, users.name, user_stats.total_xp, user_stats.strength_level, user_stats.consistency_score").
		Joins("JOIN users ON users.id = user_stats.user_id AND users.deleted_at IS NULL").
		Where("users.role = ?", model.Student).
		Order("user_stats." + string(order) + " DESC, users.name ASC, user_stats.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
