package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"training_tracker_backend/internal/model"
	"training_tracker_backend/internal/repository"
	"training_tracker_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwardSessionXPWeeklyBonusGrantedOnce(t *testing.T) {
	f := newFixture(t)
	u := f.student("Mia")

	f.session(5, model.TrainingKind(1), 0) // left incomplete so the monthly window never qualifies
	first := f.session(6, model.TrainingKind(1), 0)
	second := f.session(6, model.TrainingKind(2), 2)
	f.session(7, model.TrainingKind(1), 0)

	f.completeTraining(u.ID, first.ID)
	res, err := f.xp.AwardSessionXP(f.ctx, u.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, xpSession, res.BaseXP)
	assert.Equal(t, 0, res.BonusXP)
	assert.Equal(t, []model.XPSource{model.XPSessionComplete}, sources(res.Transactions))

	f.completeTraining(u.ID, second.ID)
	res, err = f.xp.AwardSessionXP(f.ctx, u.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, xpSession, res.BaseXP)
	assert.Equal(t, xpWeek, res.BonusXP)
	assert.Equal(t, []model.XPSource{model.XPSessionComplete, model.XPWeekComplete}, sources(res.Transactions))
	assert.Equal(t, "week:2026-10-12", res.Transactions[1].WindowKey)
	assert.Equal(t, res.BatchID, res.Transactions[1].BatchID)

	// a redundant call for the same week grants nothing further
	res, err = f.xp.AwardSessionXP(f.ctx, u.ID, second.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
	assert.Equal(t, 0, res.TotalXP())

	total, err := f.xp.TotalXP(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*xpSession+xpWeek, total)
	assert.Equal(t, 1, f.countSource(u.ID, model.XPWeekComplete))
}

func TestAwardSessionXPIncompleteOrMissingResult(t *testing.T) {
	f := newFixture(t)
	u := f.student("Leo")
	s := f.session(6, model.TrainingKind(1), 0)

	res, err := f.xp.AwardSessionXP(f.ctx, u.ID, s.ID)
	require.NoError(t, err, "missing results are not an error")
	assert.Equal(t, 0, res.BaseXP)

	f.partialTraining(u.ID, s.ID)
	res, err = f.xp.AwardSessionXP(f.ctx, u.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.BaseXP)
	assert.Empty(t, f.ledger(u.ID))
}

func TestAwardSessionXPRestWeekNeverAwardsWeeklyBonus(t *testing.T) {
	f := newFixture(t)
	u := f.student("Ava")

	f.session(5, model.TrainingKind(1), 0)
	rest := f.session(6, model.RestKind(), 0)
	a := f.session(6, model.TrainingKind(1), 1)
	b := f.session(6, model.TrainingKind(2), 2)

	res, err := f.xp.AwardSessionXP(f.ctx, u.ID, rest.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)

	for _, s := range []*model.Session{a, b} {
		f.completeTraining(u.ID, s.ID)
		_, err := f.xp.AwardSessionXP(f.ctx, u.ID, s.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, f.countSource(u.ID, model.XPWeekComplete))
	assert.Equal(t, 2, f.countSource(u.ID, model.XPSessionComplete))
}

func TestAwardSessionXPSingleSessionWeekBeforeTesting(t *testing.T) {
	f := newFixture(t)
	u := f.student("Noah")

	only := f.session(5, model.TrainingKind(1), 0)
	f.session(6, model.TestingKind(), 0) // incomplete test keeps the month open

	f.completeTraining(u.ID, only.ID)
	res, err := f.xp.AwardSessionXP(f.ctx, u.ID, only.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.XPSource{model.XPSessionComplete, model.XPWeekComplete}, sources(res.Transactions))
	assert.Equal(t, "week:2026-10-05", res.Transactions[1].WindowKey)
}

func TestAwardSessionXPConfiguredSingleSessionWeeks(t *testing.T) {
	f := newFixture(t)
	u := f.student("Zoe")

	f.session(5, model.TrainingKind(1), 0)
	only := f.session(6, model.TrainingKind(1), 0)

	f.completeTraining(u.ID, only.ID)
	res, err := f.xp.AwardSessionXP(f.ctx, u.ID, only.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.BonusXP, "week 6 needs two sessions by default")

	cfg := testScoringConfig()
	cfg.SingleSessionWeeks = []int{6}
	rules, err := RulesFromConfig(cfg)
	require.NoError(t, err)
	f.xp.SetRules(rules)

	res, err = f.xp.AwardSessionXP(f.ctx, u.ID, only.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.BaseXP, "base award is per session and already granted")
	assert.Equal(t, xpWeek, res.BonusXP)
}

func TestAwardSessionXPTestingAndTrainingAndTestingBonus(t *testing.T) {
	f := newFixture(t)
	u := f.student("Eli")

	f.session(5, model.TrainingKind(1), 0)
	training := f.session(6, model.TrainingKind(1), 0)
	testing := f.session(6, model.TestingKind(), 2)

	// testing submitted first: the pair is not complete yet
	f.completeTest(u.ID, testing.ID, fullMetrics(180), testNow)
	res, err := f.xp.AwardSessionXP(f.ctx, u.ID, testing.ID)
	require.NoError(t, err)
	assert.Equal(t, xpTesting, res.BaseXP)
	assert.Equal(t, []model.XPSource{model.XPTestingComplete}, sources(res.Transactions))

	f.completeTraining(u.ID, training.ID)
	res, err = f.xp.AwardSessionXP(f.ctx, u.ID, training.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.XPSource{model.XPSessionComplete, model.XPTrainingAndTesting}, sources(res.Transactions))
	assert.Equal(t, "week:2026-10-12", res.Transactions[1].WindowKey)

	res, err = f.xp.AwardSessionXP(f.ctx, u.ID, testing.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
	assert.Equal(t, 1, f.countSource(u.ID, model.XPTrainingAndTesting))
}

func TestAwardSessionXPTestingRequiresFiveCoreMetrics(t *testing.T) {
	f := newFixture(t)
	u := f.student("Ivy")
	testing := f.session(6, model.TestingKind(), 0)

	m := fullMetrics(150)
	m.HighPlank = nil
	f.completeTest(u.ID, testing.ID, m, testNow)

	res, err := f.xp.AwardSessionXP(f.ctx, u.ID, testing.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
}

func TestAwardSessionXPMonthlyBonusRollingWindow(t *testing.T) {
	f := newFixture(t)
	u := f.student("Kai")

	f.session(1, model.TrainingKind(1), 0) // released before the window, ignored
	w5 := f.session(5, model.TrainingKind(1), 0)
	w6 := f.session(6, model.TrainingKind(1), 0)
	w6test := f.session(6, model.TestingKind(), 2)

	f.completeTraining(u.ID, w5.ID)
	f.completeTest(u.ID, w6test.ID, fullMetrics(170), testNow)
	f.completeTraining(u.ID, w6.ID)

	res, err := f.xp.AwardSessionXP(f.ctx, u.ID, w6.ID)
	require.NoError(t, err)
	assert.Contains(t, sources(res.Transactions), model.XPMonthComplete)
	assert.Equal(t, 1, f.countSource(u.ID, model.XPMonthComplete))

	// later the same window: no second monthly bonus
	f.clock.Set(testNow.Add(10 * 24 * time.Hour))
	_, err = f.xp.AwardSessionXP(f.ctx, u.ID, w5.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.countSource(u.ID, model.XPMonthComplete))

	// a fresh window with all of its sessions complete earns another bonus
	later := testNow.AddDate(0, 0, testWindow+1)
	f.clock.Set(later)
	w7 := f.session(7, model.TrainingKind(1), 0)
	w8 := f.session(8, model.TrainingKind(1), 0)
	w9 := f.session(9, model.TrainingKind(1), 0)
	for _, s := range []*model.Session{w7, w8, w9} {
		f.completeTraining(u.ID, s.ID)
	}
	res, err = f.xp.AwardSessionXP(f.ctx, u.ID, w9.ID)
	require.NoError(t, err)
	assert.Contains(t, sources(res.Transactions), model.XPMonthComplete)
	assert.Equal(t, 2, f.countSource(u.ID, model.XPMonthComplete))
}

func TestAwardSessionXPNotFound(t *testing.T) {
	f := newFixture(t)
	u := f.student("Ren")
	s := f.session(6, model.TrainingKind(1), 0)

	_, err := f.xp.AwardSessionXP(f.ctx, 9999, s.ID)
	assert.True(t, errors.Is(err, util.ErrUserNotFound))
	assert.True(t, errors.Is(err, util.ErrNotFound))

	_, err = f.xp.AwardSessionXP(f.ctx, u.ID, 9999)
	assert.True(t, errors.Is(err, util.ErrSessionNotFound))

	_, err = f.xp.TotalXP(f.ctx, 9999)
	assert.True(t, errors.Is(err, util.ErrNotFound))
}

func TestAwardSessionXPConcurrentCallsGrantOnce(t *testing.T) {
	f := newFixture(t)
	u := f.student("Sam")

	f.session(5, model.TrainingKind(1), 0)
	a := f.session(6, model.TrainingKind(1), 0)
	b := f.session(6, model.TrainingKind(2), 2)
	f.completeTraining(u.ID, a.ID)
	f.completeTraining(u.ID, b.ID)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessionID := a.ID
			if i%2 == 1 {
				sessionID = b.ID
			}
			res, err := f.xp.AwardSessionXP(f.ctx, u.ID, sessionID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			granted += len(res.Transactions)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.countSource(u.ID, model.XPWeekComplete))
	assert.Equal(t, 2, f.countSource(u.ID, model.XPSessionComplete))
	assert.Equal(t, len(f.ledger(u.ID)), granted)
}

func TestUserXPSummary(t *testing.T) {
	f := newFixture(t)
	u := f.student("Ada")

	f.session(5, model.TrainingKind(1), 0)
	a := f.session(6, model.TrainingKind(1), 0)
	b := f.session(6, model.TrainingKind(2), 2)
	for _, s := range []*model.Session{a, b} {
		f.completeTraining(u.ID, s.ID)
		_, err := f.xp.AwardSessionXP(f.ctx, u.ID, s.ID)
		require.NoError(t, err)
	}

	summary, err := f.xp.UserXPSummary(f.ctx, u.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2*xpSession+xpWeek, summary.TotalXP)
	assert.Len(t, summary.RecentTransactions, 2)
	assert.Equal(t, LevelForXP(summary.TotalXP), summary.Level.CurrentLevel)

	require.Len(t, summary.Breakdown, 2)
	assert.Equal(t, SourceBreakdown{Source: model.XPSessionComplete, Label: "Session Complete", TotalXP: 2 * xpSession}, summary.Breakdown[0])
	assert.Equal(t, SourceBreakdown{Source: model.XPWeekComplete, Label: "Weekly Bonus", TotalXP: xpWeek}, summary.Breakdown[1])
}

func TestNextLevelInfoForUser(t *testing.T) {
	f := newFixture(t)
	u := f.student("Bo")

	info, err := f.xp.NextLevelInfo(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, info.CurrentLevel)
	assert.Equal(t, 1, info.XPNeeded)

	level, err := f.xp.CurrentLevel(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, level)
}

func TestAwardSessionXPMonthlyBonusOnTestingCompletion(t *testing.T) {
	f := newFixture(t)
	u := f.student("Lea")

	w5 := f.session(5, model.TrainingKind(1), 0)
	w6 := f.session(6, model.TrainingKind(1), 0)
	w6test := f.session(6, model.TestingKind(), 2)

	f.completeTraining(u.ID, w5.ID)
	f.completeTraining(u.ID, w6.ID)
	res, err := f.xp.AwardSessionXP(f.ctx, u.ID, w6.ID)
	require.NoError(t, err)
	assert.NotContains(t, sources(res.Transactions), model.XPMonthComplete, "testing session still outstanding")

	// the testing submission closes both the week pair and the rolling month
	f.completeTest(u.ID, w6test.ID, fullMetrics(175), testNow)
	res, err = f.xp.AwardSessionXP(f.ctx, u.ID, w6test.ID)
	require.NoError(t, err)
	assert.Contains(t, sources(res.Transactions), model.XPTrainingAndTesting)
	assert.Contains(t, sources(res.Transactions), model.XPMonthComplete)
	assert.Equal(t, 1, f.countSource(u.ID, model.XPMonthComplete))
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

type recordingUsers struct {
	repository.UserStore
	log *callLog
}

func (r recordingUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	r.log.add("FindByID")
	return r.UserStore.FindByID(ctx, id)
}

func (r recordingUsers) LockForUpdate(ctx context.Context, id uint) error {
	r.log.add("LockForUpdate")
	return r.UserStore.LockForUpdate(ctx, id)
}

type recordingCatalog struct {
	repository.CatalogStore
	log *callLog
}

func (r recordingCatalog) FindSession(ctx context.Context, id uint) (*model.Session, error) {
	r.log.add("FindSession")
	return r.CatalogStore.FindSession(ctx, id)
}

type recordingUnitOfWork struct {
	*repository.GormUnitOfWork
	log *callLog
}

func (u recordingUnitOfWork) Transaction(ctx context.Context, fn func(repository.Repositories) error) error {
	return u.GormUnitOfWork.Transaction(ctx, func(repos repository.Repositories) error {
		repos.Users = recordingUsers{UserStore: repos.Users, log: u.log}
		repos.Catalog = recordingCatalog{CatalogStore: repos.Catalog, log: u.log}
		return fn(repos)
	})
}

func TestAwardSessionXPLocksUserBeforeReading(t *testing.T) {
	f := newFixture(t)
	u := f.student("Max")
	s := f.session(6, model.TrainingKind(1), 0)
	rest := f.session(6, model.RestKind(), 4)
	f.completeTraining(u.ID, s.ID)

	for _, sessionID := range []uint{s.ID, rest.ID} {
		log := &callLog{}
		svc := NewXPService(recordingUnitOfWork{GormUnitOfWork: f.uow, log: log}, f.clock, f.xp.Rules())

		_, err := svc.AwardSessionXP(f.ctx, u.ID, sessionID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(log.calls), 3)
		assert.Equal(t, []string{"LockForUpdate", "FindByID", "FindSession"}, log.calls[:3])
	}
}
