package service

import (
	"context"
	"sync"
	"testing"
	"time"
	"training_tracker_backend/internal/config"
	"training_tracker_backend/internal/model"
	"training_tracker_backend/internal/repository"
	"training_tracker_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 2026-10-15 is a Thursday; block 1 week 6 starts Monday 2026-10-12.
var (
	testNow        = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	testBlockStart = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
)

const (
	xpSession  = 10
	xpTesting  = 20
	xpWeek     = 5
	xpTT       = 7
	xpMonth    = 50
	testWindow = 28
)

type mutableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *mutableClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	uow      *repository.GormUnitOfWork
	clock    *mutableClock
	xp       *XPService
	stats    *UserStatService
	progress *ProgressTrackingService
	block    *model.Block
}

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Timezone:           "UTC",
		MonthWindowDays:    testWindow,
		RecentTransactions: 10,
		XP: config.XPConfig{
			SessionComplete:    xpSession,
			TestingComplete:    xpTesting,
			WeekComplete:       xpWeek,
			TrainingAndTesting: xpTT,
			MonthComplete:      xpMonth,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	rules, err := RulesFromConfig(testScoringConfig())
	require.NoError(t, err)

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		uow:   repository.NewUnitOfWork(db),
		clock: &mutableClock{t: testNow},
	}
	f.xp = NewXPService(f.uow, f.clock, rules)
	f.stats = NewUserStatService(f.uow, f.xp, f.clock, nil)
	f.progress = NewProgressTrackingService(f.uow, f.clock)

	admin := f.user("Coach", model.Admin)
	f.block = f.newBlock(admin.ID, 1, testBlockStart)
	return f
}

func (f *fixture) user(name string, role model.UserRole) *model.User {
	u := &model.User{Name: name, Role: role}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

func (f *fixture) student(name string) *model.User {
	return f.user(name, model.Student)
}

func (f *fixture) newBlock(ownerID uint, number int, start time.Time) *model.Block {
	b := &model.Block{OwnerID: ownerID, BlockNumber: number, StartDate: start, EndDate: start.AddDate(0, 0, 7*12-1)}
	require.NoError(f.t, f.db.Create(b).Error)
	return b
}

// session creates a session in block b released dayOffset days after the week's Monday at 09:00.
func (f *fixture) sessionIn(b *model.Block, week int, kind model.SessionKind, dayOffset int) *model.Session {
	release := b.StartDate.AddDate(0, 0, 7*(week-1)+dayOffset).Add(9 * time.Hour)
	s := &model.Session{BlockID: b.ID, WeekNumber: week, ReleaseDate: release}
	s.SetKind(kind)
	require.NoError(f.t, f.db.Create(s).Error)
	return s
}

func (f *fixture) session(week int, kind model.SessionKind, dayOffset int) *model.Session {
	return f.sessionIn(f.block, week, kind, dayOffset)
}

func (f *fixture) completeTraining(userID, sessionID uint) {
	warmup := true
	r := &model.TrainingResult{
		UserID:                userID,
		SessionID:             sessionID,
		WarmupCompleted:       &warmup,
		Plyometrics:           "3x10",
		Power:                 "med ball 4kg",
		LowerBodyStrength:     "goblet squat 12kg",
		UpperBodyCoreStrength: "push-ups 3x8",
		CompletedAt:           f.clock.Now(),
	}
	require.NoError(f.t, f.db.Create(r).Error)
}

func (f *fixture) partialTraining(userID, sessionID uint) {
	warmup := true
	r := &model.TrainingResult{
		UserID:          userID,
		SessionID:       sessionID,
		WarmupCompleted: &warmup,
		Plyometrics:     "3x10",
		CompletedAt:     f.clock.Now(),
	}
	require.NoError(f.t, f.db.Create(r).Error)
}

func fullMetrics(base float64) model.TestMetrics {
	v := func(x float64) *float64 { return &x }
	return model.TestMetrics{
		StandingLongJump:   v(base),
		SingleLegJumpLeft:  v(base / 2),
		SingleLegJumpRight: v(base / 2),
		WallSit:            v(60),
		HighPlank:          v(45),
		BentArmHang:        v(20),
	}
}

func (f *fixture) completeTest(userID, sessionID uint, metrics model.TestMetrics, at time.Time) {
	r := &model.TestResult{UserID: userID, SessionID: sessionID, TestMetrics: metrics, CompletedAt: at}
	require.NoError(f.t, f.db.Create(r).Error)
}

func (f *fixture) ledger(userID uint) []model.XpTransaction {
	var txs []model.XpTransaction
	require.NoError(f.t, f.db.Where("user_id = ?", userID).Order("id ASC").Find(&txs).Error)
	return txs
}

func (f *fixture) countSource(userID uint, source model.XPSource) int {
	n := 0
	for _, tx := range f.ledger(userID) {
		if tx.XPSource == source {
			n++
		}
	}
	return n
}

func sources(txs []model.XpTransaction) []model.XPSource {
	out := make([]model.XPSource, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.XPSource)
	}
	return out
}
