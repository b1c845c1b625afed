package repository

import (
	"context"
	"errors"
	"time"
	"training_tracker_backend/internal/model"

	"gorm.io/gorm"
)

type UserStore interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	ListIDsByRole(ctx context.Context, role model.UserRole) ([]uint, error)
	LockForUpdate(ctx context.Context, id uint) error
}

type CatalogStore interface {
	FindSession(ctx context.Context, id uint) (*model.Session, error)
	ListWeekSessions(ctx context.Context, blockID uint, week int) ([]model.Session, error)
	ListReleasedBetween(ctx context.Context, from, to time.Time, types ...model.SessionType) ([]model.Session, error)
	ListTrainingIDsReleasedBy(ctx context.Context, at time.Time) ([]uint, error)
}

type ResultStore interface {
	ListTrainingResults(ctx context.Context, userID uint, sessionIDs []uint) ([]model.TrainingResult, error)
	ListTestResults(ctx context.Context, userID uint, sessionIDs []uint) ([]model.TestResult, error)
	CountTrainingSessionsWithResults(ctx context.Context, userID uint, sessionIDs []uint) (int, error)
	ListTestResultsInProgramOrder(ctx context.Context, userID uint) ([]model.TestResult, error)
}

type XPLedgerStore interface {
	Append(ctx context.Context, tx *model.XpTransaction) (bool, error)
	ExistsBetween(ctx context.Context, userID uint, source model.XPSource, from, to time.Time) (bool, error)
	SumByUser(ctx context.Context, userID uint) (int, error)
	SumBySource(ctx context.Context, userID uint) ([]SourceTotal, error)
	ListRecent(ctx context.Context, userID uint, limit int) ([]model.XpTransaction, error)
}

type UserStatStore interface {
	Upsert(ctx context.Context, stat *model.UserStat) error
	FindByUser(ctx context.Context, userID uint) (*model.UserStat, error)
	ListTop(ctx context.Context, order LeaderboardOrder, limit int) ([]LeaderboardRow, error)
}

type ProgressStore interface {
	Upsert(ctx context.Context, p *model.ProgressTracking) error
	DeleteByUser(ctx context.Context, userID uint) error
	ListByUser(ctx context.Context, userID uint) ([]model.ProgressTracking, error)
}

// Repositories 积分引擎依赖的全部存储
type Repositories struct {
	Users    UserStore
	Catalog  CatalogStore
	Results  ResultStore
	Ledger   XPLedgerStore
	Stats    UserStatStore
	Progress ProgressStore
}

// UnitOfWork 提供非事务访问和事务内访问两种方式
type UnitOfWork interface {
	Repositories() Repositories
	Transaction(ctx context.Context, fn func(Repositories) error) error
}

type GormUnitOfWork struct {
	DB *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{DB: db}
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:    NewUserRepository(db),
		Catalog:  NewCatalogRepository(db),
		Results:  NewResultRepository(db),
		Ledger:   NewXPTransactionRepository(db),
		Stats:    NewUserStatRepository(db),
		Progress: NewProgressRepository(db),
	}
}

func (u *GormUnitOfWork) Repositories() Repositories {
	return NewRepositories(u.DB)
}

// Transaction fn 内只能使用传入的 Repositories，不能再使用外层连接
func (u *GormUnitOfWork) Transaction(ctx context.Context, fn func(Repositories) error) error {
	return u.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// translateNotFound 将 gorm.ErrRecordNotFound 转为领域错误
func translateNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
