package repository

import (
	"context"
	"training_tracker_backend/internal/model"

	"gorm.io/gorm"
)

// ResultRepository 训练与测试提交记录
type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

func (r *ResultRepository) ListTrainingResults(ctx context.Context, userID uint, sessionIDs []uint) ([]model.TrainingResult, error) {
	var results []model.TrainingResult
	if len(sessionIDs) == 0 {
		return results, nil
	}
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND session_id IN ?", userID, sessionIDs).
		Find(&results).Error
	return results, err
}

func (r *ResultRepository) ListTestResults(ctx context.Context, userID uint, sessionIDs []uint) ([]model.TestResult, error) {
	var results []model.TestResult
	if len(sessionIDs) == 0 {
		return results, nil
	}
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND session_id IN ?", userID, sessionIDs).
		Find(&results).Error
	return results, err
}

// CountTrainingSessionsWithResults 在给定课程中有提交记录的不同课程数
func (r *ResultRepository) CountTrainingSessionsWithResults(ctx context.Context, userID uint, sessionIDs []uint) (int, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.TrainingResult{}).
		Where("user_id = ? AND session_id IN ?", userID, sessionIDs).
		Distinct("session_id").
		Count(&count).Error
	return int(count), err
}

// ListTestResultsInProgramOrder 按计划顺序（周期号、周号、提交时间）返回测试成绩
func (r *ResultRepository) ListTestResultsInProgramOrder(ctx context.Context, userID uint) ([]model.TestResult, error) {
	var results []model.TestResult
	err := r.DB.WithContext(ctx).Model(&model.TestResult{}).
		Select("test_results.*").
		Joins("JOIN sessions ON sessions.id = test_results.session_id AND sessions.deleted_at IS NULL").
		Joins("JOIN blocks ON blocks.id = sessions.block_id").
		Where("test_results.user_id = ?", userID).
		Order("blocks.block_number ASC, sessions.week_number ASC, test_results.completed_at ASC, test_results.id ASC").
		Find(&results).Error
	return results, err
}
