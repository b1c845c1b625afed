package repository

import (
	"context"
	"time"
	"training_tracker_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SourceTotal 按来源汇总的积分
type SourceTotal struct {
	Source model.XPSource `gorm:"column:source"`
	Total  int            `gorm:"column:total"`
}

// XPTransactionRepository 积分流水，只追加
type XPTransactionRepository struct {
	DB *gorm.DB
}

func NewXPTransactionRepository(db *gorm.DB) *XPTransactionRepository {
	return &XPTransactionRepository{DB: db}
}

// Append 写入一条流水；同一 (user, source, window) 已存在时不写入并返回 false
func (r *XPTransactionRepository) Append(ctx context.Context, t *model.XpTransaction) (bool, error) {
	t.TransactionDate = t.TransactionDate.UTC()
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(t)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ExistsBetween 时间窗口内是否已有该来源的流水
func (r *XPTransactionRepository) ExistsBetween(ctx context.Context, userID uint, source model.XPSource, from, to time.Time) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.XpTransaction{}).
		Where("user_id = ? AND xp_source = ? AND transaction_date BETWEEN ? AND ?", userID, source, from.UTC(), to.UTC()).
		Count(&count).Error
	return count > 0, err
}

func (r *XPTransactionRepository) SumByUser(ctx context.Context, userID uint) (int, error) {
	var total int
	err := r.DB.WithContext(ctx).Model(&model.XpTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(xp_amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *XPTransactionRepository) SumBySource(ctx context.Context, userID uint) ([]SourceTotal, error) {
	var totals []SourceTotal
	err := r.DB.WithContext(ctx).Model(&model.XpTransaction{}).
		Select("xp_source AS source, SUM(xp_amount) AS total").
		Where("user_id = ?", userID).
		Group("xp_source").
		Order("total DESC, source ASC").
		Scan(&totals).Error
	return totals, err
}

// ListRecent 最近的流水，新的在前
func (r *XPTransactionRepository) ListRecent(ctx context.Context, userID uint, limit int) ([]model.XpTransaction, error) {
	var txs []model.XpTransaction
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("transaction_date DESC, id DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}
