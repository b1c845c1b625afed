package service

import (
	"context"
	"errors"
	"fmt"
	"training_tracker_backend/internal/model"
	"training_tracker_backend/internal/repository"
	"training_tracker_backend/internal/util"
	"training_tracker_backend/pkg/logger"
	"training_tracker_backend/pkg/monitoring"
	"training_tracker_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LeaderboardCache is implemented by repository.LeaderboardCache (Redis).
type LeaderboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context) error
}

const (
	MetricXP          = "xp"
	MetricConsistency = "consistency"
)

type LeaderboardEntry struct {
	Rank             int     `json:"rank"`
	UserID           uint    `json:"userId"`
	Name             string  `json:"name"`
	TotalXP          int     `json:"totalXp"`
	StrengthLevel    int     `json:"strengthLevel"`
	ConsistencyScore float64 `json:"consistencyScore"`
}

type CompletionOutcome struct {
	Award *AwardResult    `json:"award"`
	Stat  *model.UserStat `json:"stat"`
}

// UserStatService maintains the per-user statistic snapshot and leaderboards.
type UserStatService struct {
	UOW   repository.UnitOfWork
	XP    *XPService
	Clock Clock
	Cache LeaderboardCache
}

func NewUserStatService(uow repository.UnitOfWork, xp *XPService, clock Clock, cache LeaderboardCache) *UserStatService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &UserStatService{UOW: uow, XP: xp, Clock: clock, Cache: cache}
}

// ConsistencyScore is 100*completed/available rounded to 2 decimals, clamped to [0,100].
func ConsistencyScore(completed, available int) float64 {
	if available <= 0 {
		return 0
	}
	score := util.Round2(100 * float64(completed) / float64(available))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RecomputeUserStat rebuilds the user's snapshot from the ledger, the catalog
// and the result store, then upserts it.
func (s *UserStatService) RecomputeUserStat(ctx context.Context, userID uint) (stat *model.UserStat, err error) {
	ctx, span := tracing.StartSpan(ctx, "UserStatService.RecomputeUserStat", attribute.Int64("user.id", int64(userID)))
	defer func() { tracing.EndSpan(span, err) }()

	repos := s.UOW.Repositories()
	if _, err := repos.Users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	now := s.Clock.Now().UTC()
	total, err := repos.Ledger.SumByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	released, err := repos.Catalog.ListTrainingIDsReleasedBy(ctx, now)
	if err != nil {
		return nil, err
	}
	completed, err := repos.Results.CountTrainingSessionsWithResults(ctx, userID, released)
	if err != nil {
		return nil, err
	}

	stat = &model.UserStat{
		UserID:            userID,
		TotalXP:           total,
		StrengthLevel:     LevelForXP(total),
		SessionsCompleted: completed,
		SessionsAvailable: len(released),
		ConsistencyScore:  ConsistencyScore(completed, len(released)),
		LastUpdated:       now,
	}
	if err := repos.Stats.Upsert(ctx, stat); err != nil {
		return nil, err
	}

	monitoring.StatRecomputes.Inc()
	s.invalidateLeaderboards(ctx)
	return stat, nil
}

// UpdateAfterSessionCompletion is the post-submission hook: award XP, then refresh stats.
func (s *UserStatService) UpdateAfterSessionCompletion(ctx context.Context, userID, sessionID uint) (*CompletionOutcome, error) {
	award, err := s.XP.AwardSessionXP(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	stat, err := s.RecomputeUserStat(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CompletionOutcome{Award: award, Stat: stat}, nil
}

// GetUserStat returns the stored snapshot, computing it on first access.
func (s *UserStatService) GetUserStat(ctx context.Context, userID uint) (*model.UserStat, error) {
	stat, err := s.UOW.Repositories().Stats.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stat != nil {
		return stat, nil
	}
	return s.RecomputeUserStat(ctx, userID)
}

// RecomputeAll refreshes every student. Failures are logged and joined; the
// count is the number of users refreshed successfully.
func (s *UserStatService) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.UOW.Repositories().Users.ListIDsByRole(ctx, model.Student)
	if err != nil {
		return 0, err
	}

	var (
		done int
		errs []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.RecomputeUserStat(ctx, id); err != nil {
			logger.Log.Error("recompute user stat failed", zap.Uint("user_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("user %d: %w", id, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// Leaderboard ranks students by metric using competition ranking (1,1,3).
func (s *UserStatService) Leaderboard(ctx context.Context, metric string, limit int) (entries []LeaderboardEntry, err error) {
	ctx, span := tracing.StartSpan(ctx, "UserStatService.Leaderboard", attribute.String("leaderboard.metric", metric))
	defer func() { tracing.EndSpan(span, err) }()

	var order repository.LeaderboardOrder
	switch metric {
	case MetricXP, "":
		metric, order = MetricXP, repository.OrderByXP
	case MetricConsistency:
		order = repository.OrderByConsistency
	default:
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidMetric, metric)
	}
	if limit <= 0 {
		limit = util.DefaultLeaderboardLimit
	}
	if limit > util.MaxLeaderboardLimit {
		limit = util.MaxLeaderboardLimit
	}

	cacheKey := fmt.Sprintf("%s:%d", metric, limit)
	if s.Cache != nil {
		var cached []LeaderboardEntry
		hit, err := s.Cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			logger.Log.Warn("leaderboard cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	rows, err := s.UOW.Repositories().Stats.ListTop(ctx, order, limit)
	if err != nil {
		return nil, err
	}
	entries = RankLeaderboard(rows, metric)

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, cacheKey, entries); err != nil {
			logger.Log.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}

// RankLeaderboard assigns competition ranks to rows already sorted by metric.
func RankLeaderboard(rows []repository.LeaderboardRow, metric string) []LeaderboardEntry {
	value := func(r repository.LeaderboardRow) float64 {
		if metric == MetricConsistency {
			return r.ConsistencyScore
		}
		return float64(r.TotalXP)
	}

	entries := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		rank := i + 1
		if i > 0 && value(r) == value(rows[i-1]) {
			rank = entries[i-1].Rank
		}
		entries[i] = LeaderboardEntry{
			Rank:             rank,
			UserID:           r.UserID,
			Name:             r.Name,
			TotalXP:          r.TotalXP,
			StrengthLevel:    r.StrengthLevel,
			ConsistencyScore: r.ConsistencyScore,
		}
	}
	return entries
}

func (s *UserStatService) invalidateLeaderboards(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		logger.Log.Warn("leaderboard cache invalidation failed", zap.Error(err))
	}
}
