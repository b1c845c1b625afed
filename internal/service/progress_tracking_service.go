package service

import (
	"context"
	"time"
	"training_tracker_backend/internal/model"
	"training_tracker_backend/internal/repository"
	"training_tracker_backend/internal/util"
	"training_tracker_backend/pkg/logger"
	"training_tracker_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProgressTrackingService keeps one baseline/current/percentage row per user and test.
type ProgressTrackingService struct {
	UOW   repository.UnitOfWork
	Clock Clock
}

func NewProgressTrackingService(uow repository.UnitOfWork, clock Clock) *ProgressTrackingService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ProgressTrackingService{UOW: uow, Clock: clock}
}

// RecordTestingProgress compares the submitted metrics with the user's baseline:
// the earliest test result in program order, counting the submission itself.
// Returns false for non-testing sessions.
func (s *ProgressTrackingService) RecordTestingProgress(ctx context.Context, userID, sessionID uint, submitted model.TestMetrics) (processed bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "ProgressTrackingService.RecordTestingProgress",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("session.id", int64(sessionID)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	repos := s.UOW.Repositories()
	if _, err := repos.Users.FindByID(ctx, userID); err != nil {
		return false, err
	}
	session, err := repos.Catalog.FindSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !session.Kind().IsTesting() {
		return false, nil
	}

	history, err := repos.Results.ListTestResultsInProgramOrder(ctx, userID)
	if err != nil {
		return false, err
	}
	// 提交的成绩在计划中早于已存最早成绩时，以提交值为基线
	baseline := submitted
	if len(history) > 0 {
		earliest, err := repos.Catalog.FindSession(ctx, history[0].SessionID)
		if err != nil {
			return false, err
		}
		if !programBefore(session, earliest) {
			baseline = history[0].TestMetrics
		}
	}

	now := s.Clock.Now().UTC()
	err = s.UOW.Transaction(ctx, func(tx repository.Repositories) error {
		_, err := upsertProgress(ctx, tx.Progress, userID, baseline, submitted, now)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecalculateAll rebuilds every progress row for the user from stored results:
// earliest result in program order is the baseline, the latest is current.
// Returns false when the user has no test results.
func (s *ProgressTrackingService) RecalculateAll(ctx context.Context, userID uint) (ok bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "ProgressTrackingService.RecalculateAll", attribute.Int64("user.id", int64(userID)))
	defer func() { tracing.EndSpan(span, err) }()

	repos := s.UOW.Repositories()
	if _, err := repos.Users.FindByID(ctx, userID); err != nil {
		return false, err
	}
	history, err := repos.Results.ListTestResultsInProgramOrder(ctx, userID)
	if err != nil {
		return false, err
	}
	if len(history) == 0 {
		return false, nil
	}

	baseline := history[0].TestMetrics
	latest := history[len(history)-1].TestMetrics
	now := s.Clock.Now().UTC()

	var written int
	err = s.UOW.Transaction(ctx, func(tx repository.Repositories) error {
		if err := tx.Progress.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		var upsertErr error
		written, upsertErr = upsertProgress(ctx, tx.Progress, userID, baseline, latest, now)
		return upsertErr
	})
	if err != nil {
		return false, err
	}

	logger.Log.Info("progress recalculated", zap.Uint("user_id", userID), zap.Int("metrics", written))
	return true, nil
}

func (s *ProgressTrackingService) ListProgress(ctx context.Context, userID uint) ([]model.ProgressTracking, error) {
	repos := s.UOW.Repositories()
	if _, err := repos.Users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return repos.Progress.ListByUser(ctx, userID)
}

// programBefore orders sessions by block number, then week number.
func programBefore(a, b *model.Session) bool {
	ab, bb := blockNumber(a), blockNumber(b)
	if ab != bb {
		return ab < bb
	}
	return a.WeekNumber < b.WeekNumber
}

func blockNumber(s *model.Session) int {
	if s.Block == nil {
		return 0
	}
	return s.Block.BlockNumber
}

// PercentageIncrease returns nil when the baseline cannot be divided by.
func PercentageIncrease(baseline, current float64) *float64 {
	if baseline <= 0 {
		return nil
	}
	pct := util.Round2(100 * (current - baseline) / baseline)
	return &pct
}

func upsertProgress(ctx context.Context, store repository.ProgressStore, userID uint, baseline, current model.TestMetrics, now time.Time) (int, error) {
	written := 0
	for _, testType := range model.TestTypes {
		cur := current.Value(testType)
		base := baseline.Value(testType)
		if cur == nil || base == nil {
			continue
		}
		pct := PercentageIncrease(*base, *cur)
		if pct == nil {
			continue
		}
		row := &model.ProgressTracking{
			UserID:             userID,
			TestType:           testType,
			BaselineValue:      *base,
			CurrentValue:       *cur,
			PercentageIncrease: pct,
			LastUpdated:        now,
		}
		if err := store.Upsert(ctx, row); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
