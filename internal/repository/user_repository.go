package repository

import (
	"context"
	"training_tracker_backend/internal/model"
	"training_tracker_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateNotFound(err, util.ErrUserNotFound)
	}
	return &user, nil
}

// ListIDsByRole 按角色列出用户ID
func (r *UserRepository) ListIDsByRole(ctx context.Context, role model.UserRole) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("role = ?", role).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// LockForUpdate 在 MySQL 上对用户行加排他锁，串行化同一用户的发放事务。
// SQLite 本身按库加写锁，直接跳过。
func (r *UserRepository) LockForUpdate(ctx context.Context, id uint) error {
	if r.DB.Dialector.Name() != "mysql" {
		return nil
	}
	var user model.User
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&user, id).Error
	return translateNotFound(err, util.ErrUserNotFound)
}
