package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"training_tracker_backend/internal/config"
	"training_tracker_backend/internal/model"
	"training_tracker_backend/internal/repository"
	"training_tracker_backend/internal/util"
	"training_tracker_backend/pkg/logger"
	"training_tracker_backend/pkg/monitoring"
	"training_tracker_backend/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ScoringRules is the hot-reloadable part of the scoring configuration.
type ScoringRules struct {
	Location           *time.Location
	MonthWindowDays    int
	SingleSessionWeeks map[int]bool
	RecentTransactions int
	XP                 config.XPConfig
}

func RulesFromConfig(cfg config.ScoringConfig) (ScoringRules, error) {
	if err := cfg.Validate(); err != nil {
		return ScoringRules{}, err
	}
	loc, _ := cfg.Location()
	weeks := make(map[int]bool, len(cfg.SingleSessionWeeks))
	for _, w := range cfg.SingleSessionWeeks {
		weeks[w] = true
	}
	recent := cfg.RecentTransactions
	if recent <= 0 {
		recent = 10
	}
	return ScoringRules{
		Location:           loc,
		MonthWindowDays:    cfg.MonthWindowDays,
		SingleSessionWeeks: weeks,
		RecentTransactions: recent,
		XP:                 cfg.XP,
	}, nil
}

// AwardResult lists every ledger row written by one AwardSessionXP call.
type AwardResult struct {
	UserID       uint                  `json:"userId"`
	SessionID    uint                  `json:"sessionId"`
	BatchID      string                `json:"batchId"`
	BaseXP       int                   `json:"baseXp"`
	BonusXP      int                   `json:"bonusXp"`
	Transactions []model.XpTransaction `json:"transactions"`
}

func (r *AwardResult) TotalXP() int { return r.BaseXP + r.BonusXP }

type SourceBreakdown struct {
	Source  model.XPSource `json:"source"`
	Label   string         `json:"label"`
	TotalXP int            `json:"totalXp"`
}

type XPSummary struct {
	UserID             uint                  `json:"userId"`
	TotalXP            int                   `json:"totalXp"`
	Level              NextLevelInfo         `json:"level"`
	RecentTransactions []model.XpTransaction `json:"recentTransactions"`
	Breakdown          []SourceBreakdown     `json:"breakdown"`
}

// XPService owns the XP ledger: awards, totals and levels.
type XPService struct {
	UOW   repository.UnitOfWork
	Clock Clock

	mu    sync.RWMutex
	rules ScoringRules
}

func NewXPService(uow repository.UnitOfWork, clock Clock, rules ScoringRules) *XPService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &XPService{UOW: uow, Clock: clock, rules: rules}
}

func (s *XPService) Rules() ScoringRules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// SetRules swaps the scoring rules used by subsequent awards.
func (s *XPService) SetRules(rules ScoringRules) {
	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
}

// AwardSessionXP grants the base award for a completed session plus any bonus
// the completion unlocks. All ledger writes happen in one transaction; every
// grant is keyed by its window so repeated calls never double-award.
func (s *XPService) AwardSessionXP(ctx context.Context, userID, sessionID uint) (result *AwardResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "XPService.AwardSessionXP",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("session.id", int64(sessionID)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	result = &AwardResult{
		UserID:       userID,
		SessionID:    sessionID,
		BatchID:      uuid.NewString(),
		Transactions: []model.XpTransaction{},
	}
	err = s.UOW.Transaction(ctx, func(repos repository.Repositories) error {
		a := &awarder{
			ctx:    ctx,
			repos:  repos,
			rules:  s.Rules(),
			now:    s.Clock.Now().UTC(),
			userID: userID,
			result: result,
		}
		return a.run(sessionID)
	})
	if err != nil {
		return nil, err
	}

	for _, t := range result.Transactions {
		monitoring.XPAwarded.WithLabelValues(string(t.XPSource)).Add(float64(t.XPAmount))
		if !isBaseSource(t.XPSource) {
			monitoring.BonusGrants.WithLabelValues(string(t.XPSource)).Inc()
		}
		logger.Log.Info("XP granted",
			zap.Uint("user_id", userID),
			zap.Uint("session_id", sessionID),
			zap.String("xp_source", string(t.XPSource)),
			zap.Int("xp_amount", t.XPAmount),
			zap.String("batch_id", result.BatchID),
		)
	}
	span.SetAttributes(attribute.Int("xp.total", result.TotalXP()))
	return result, nil
}

func (s *XPService) TotalXP(ctx context.Context, userID uint) (int, error) {
	repos := s.UOW.Repositories()
	if _, err := repos.Users.FindByID(ctx, userID); err != nil {
		return 0, err
	}
	return repos.Ledger.SumByUser(ctx, userID)
}

func (s *XPService) CurrentLevel(ctx context.Context, userID uint) (int, error) {
	total, err := s.TotalXP(ctx, userID)
	if err != nil {
		return 0, err
	}
	return LevelForXP(total), nil
}

func (s *XPService) NextLevelInfo(ctx context.Context, userID uint) (*NextLevelInfo, error) {
	total, err := s.TotalXP(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := BuildNextLevelInfo(total)
	return &info, nil
}

// UserXPSummary returns the latest transactions and a per-source breakdown.
// limit <= 0 uses the configured default.
func (s *XPService) UserXPSummary(ctx context.Context, userID uint, limit int) (summary *XPSummary, err error) {
	ctx, span := tracing.StartSpan(ctx, "XPService.UserXPSummary", attribute.Int64("user.id", int64(userID)))
	defer func() { tracing.EndSpan(span, err) }()

	if limit <= 0 {
		limit = s.Rules().RecentTransactions
	}
	if limit > util.MaxRecentTransactions {
		limit = util.MaxRecentTransactions
	}

	total, err := s.TotalXP(ctx, userID)
	if err != nil {
		return nil, err
	}
	repos := s.UOW.Repositories()
	recent, err := repos.Ledger.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	totals, err := repos.Ledger.SumBySource(ctx, userID)
	if err != nil {
		return nil, err
	}

	breakdown := make([]SourceBreakdown, 0, len(totals))
	for _, t := range totals {
		breakdown = append(breakdown, SourceBreakdown{Source: t.Source, Label: t.Source.Label(), TotalXP: t.Total})
	}
	return &XPSummary{
		UserID:             userID,
		TotalXP:            total,
		Level:              BuildNextLevelInfo(total),
		RecentTransactions: recent,
		Breakdown:          breakdown,
	}, nil
}

func isBaseSource(src model.XPSource) bool {
	return src == model.XPSessionComplete || src == model.XPTestingComplete
}

// awarder carries the state of a single award transaction.
type awarder struct {
	ctx    context.Context
	repos  repository.Repositories
	rules  ScoringRules
	now    time.Time
	userID uint
	result *AwardResult
}

func (a *awarder) run(sessionID uint) error {
	// The lock must be the transaction's first statement: under REPEATABLE READ
	// an earlier plain read would pin a snapshot taken before the lock was held.
	if err := a.repos.Users.LockForUpdate(a.ctx, a.userID); err != nil {
		return err
	}
	if _, err := a.repos.Users.FindByID(a.ctx, a.userID); err != nil {
		return err
	}
	session, err := a.repos.Catalog.FindSession(a.ctx, sessionID)
	if err != nil {
		return err
	}

	kind := session.Kind()
	if kind.IsRest() {
		return nil
	}

	week, err := a.repos.Catalog.ListWeekSessions(a.ctx, session.BlockID, session.WeekNumber)
	if err != nil {
		return err
	}

	if kind.IsTraining() {
		done, err := a.completedTraining([]uint{session.ID})
		if err != nil || !done[session.ID] {
			return err
		}
		if _, err := a.grant(model.XPSessionComplete, a.rules.XP.SessionComplete, sessionWindowKey(session.ID), session); err != nil {
			return err
		}
		if err := a.checkWeekComplete(session, week); err != nil {
			return err
		}
	} else {
		done, err := a.completedTesting([]uint{session.ID})
		if err != nil || !done[session.ID] {
			return err
		}
		if _, err := a.grant(model.XPTestingComplete, a.rules.XP.TestingComplete, sessionWindowKey(session.ID), session); err != nil {
			return err
		}
	}

	// Both checks run after training and testing completions alike. The last
	// outstanding session of a week or of the rolling month can be of either
	// kind, and gating a check on one kind would leave that window unpaid.
	if err := a.checkTrainingAndTesting(session, week); err != nil {
		return err
	}
	return a.checkMonthComplete()
}

// checkWeekComplete grants the weekly bonus once the week's required number of
// training sessions is complete. Rest weeks never qualify.
func (a *awarder) checkWeekComplete(session *model.Session, week []model.Session) error {
	var training []uint
	for _, ws := range week {
		switch {
		case ws.Kind().IsRest():
			return nil
		case ws.Kind().IsTraining():
			training = append(training, ws.ID)
		}
	}
	if len(training) == 0 {
		return nil
	}

	required, err := a.requiredTrainingSessions(session)
	if err != nil {
		return err
	}
	done, err := a.completedTraining(training)
	if err != nil {
		return err
	}
	if len(done) < required {
		return nil
	}

	_, err = a.grant(model.XPWeekComplete, a.rules.XP.WeekComplete, a.weekWindowKey(week), session)
	return err
}

// requiredTrainingSessions is 1 for single-session weeks and 2 otherwise. Without
// an explicit list, a week is single-session when the next week holds a test.
func (a *awarder) requiredTrainingSessions(session *model.Session) (int, error) {
	if len(a.rules.SingleSessionWeeks) > 0 {
		if a.rules.SingleSessionWeeks[session.WeekNumber] {
			return 1, nil
		}
		return 2, nil
	}

	next, err := a.repos.Catalog.ListWeekSessions(a.ctx, session.BlockID, session.WeekNumber+1)
	if err != nil {
		return 0, err
	}
	for _, ns := range next {
		if ns.Kind().IsTesting() {
			return 1, nil
		}
	}
	return 2, nil
}

// checkTrainingAndTesting applies to weeks holding exactly one training and one testing session.
func (a *awarder) checkTrainingAndTesting(session *model.Session, week []model.Session) error {
	var trainingIDs, testingIDs []uint
	for _, ws := range week {
		switch {
		case ws.Kind().IsTraining():
			trainingIDs = append(trainingIDs, ws.ID)
		case ws.Kind().IsTesting():
			testingIDs = append(testingIDs, ws.ID)
		}
	}
	if len(trainingIDs) != 1 || len(testingIDs) != 1 {
		return nil
	}

	doneTraining, err := a.completedTraining(trainingIDs)
	if err != nil || !doneTraining[trainingIDs[0]] {
		return err
	}
	doneTesting, err := a.completedTesting(testingIDs)
	if err != nil || !doneTesting[testingIDs[0]] {
		return err
	}

	_, err = a.grant(model.XPTrainingAndTesting, a.rules.XP.TrainingAndTesting, a.weekWindowKey(week), session)
	return err
}

// checkMonthComplete grants the monthly bonus when every training and testing
// session released in the trailing window has a complete result.
func (a *awarder) checkMonthComplete() error {
	from := a.now.AddDate(0, 0, -a.rules.MonthWindowDays)
	sessions, err := a.repos.Catalog.ListReleasedBetween(a.ctx, from, a.now, model.SessionTraining, model.SessionTesting)
	if err != nil || len(sessions) == 0 {
		return err
	}

	var trainingIDs, testingIDs []uint
	for _, s := range sessions {
		if s.Kind().IsTraining() {
			trainingIDs = append(trainingIDs, s.ID)
		} else {
			testingIDs = append(testingIDs, s.ID)
		}
	}
	doneTraining, err := a.completedTraining(trainingIDs)
	if err != nil || len(doneTraining) < len(trainingIDs) {
		return err
	}
	doneTesting, err := a.completedTesting(testingIDs)
	if err != nil || len(doneTesting) < len(testingIDs) {
		return err
	}

	exists, err := a.repos.Ledger.ExistsBetween(a.ctx, a.userID, model.XPMonthComplete, from, a.now)
	if err != nil || exists {
		return err
	}

	key := "month:" + util.StartOfDay(a.now, a.rules.Location).Format(util.DateFormat)
	_, err = a.grant(model.XPMonthComplete, a.rules.XP.MonthComplete, key, nil)
	return err
}

func (a *awarder) completedTraining(ids []uint) (map[uint]bool, error) {
	done := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return done, nil
	}
	results, err := a.repos.Results.ListTrainingResults(a.ctx, a.userID, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.IsComplete() {
			done[r.SessionID] = true
		}
	}
	return done, nil
}

func (a *awarder) completedTesting(ids []uint) (map[uint]bool, error) {
	done := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return done, nil
	}
	results, err := a.repos.Results.ListTestResults(a.ctx, a.userID, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.IsComplete() {
			done[r.SessionID] = true
		}
	}
	return done, nil
}

// grant appends one ledger row. It returns false when the window was already granted.
func (a *awarder) grant(source model.XPSource, amount int, windowKey string, session *model.Session) (bool, error) {
	detail := map[string]interface{}{"window": windowKey}
	var sessionID *uint
	if session != nil {
		id := session.ID
		sessionID = &id
		detail["blockId"] = session.BlockID
		detail["weekNumber"] = session.WeekNumber
		detail["sessionType"] = session.SessionType
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return false, err
	}

	t := model.XpTransaction{
		UserID:          a.userID,
		XPAmount:        amount,
		XPSource:        source,
		WindowKey:       windowKey,
		BatchID:         a.result.BatchID,
		SessionID:       sessionID,
		Detail:          datatypes.JSON(raw),
		TransactionDate: a.now,
	}
	inserted, err := a.repos.Ledger.Append(a.ctx, &t)
	if err != nil {
		return false, fmt.Errorf("append %s: %w", source, err)
	}
	if !inserted {
		logger.Log.Debug("XP window already granted",
			zap.Uint("user_id", a.userID),
			zap.String("xp_source", string(source)),
			zap.String("window_key", windowKey),
		)
		return false, nil
	}

	a.result.Transactions = append(a.result.Transactions, t)
	if isBaseSource(source) {
		a.result.BaseXP += amount
	} else {
		a.result.BonusXP += amount
	}
	return true, nil
}

// weekWindowKey identifies the calendar week (Mon-Sun) holding the week's earliest release.
func (a *awarder) weekWindowKey(week []model.Session) string {
	earliest := week[0].ReleaseDate
	for _, ws := range week[1:] {
		if ws.ReleaseDate.Before(earliest) {
			earliest = ws.ReleaseDate
		}
	}
	return "week:" + util.StartOfWeek(earliest, a.rules.Location).Format(util.DateFormat)
}

func sessionWindowKey(id uint) string {
	return fmt.Sprintf("session:%d", id)
}
