package report

import (
	"context"
	"log/slog"
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/apperr"
	"achievement-service/internal/paging"
	"achievement-service/internal/policy"
	"achievement-service/internal/user"
)

const (
	dashboardKey = "dashboard"
	reportsKey   = "reports"

	recentPendingLimit = 5
	topPerformerLimit  = 10
	trendMonths        = 12
)

var ErrStaffOnly = apperr.New(apperr.ErrForbidden, "staff access required")

// Cache holds computed aggregates between writes. *cache.JSON satisfies it.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type AchievementLister interface {
	ListPending(ctx context.Context, actor policy.Actor, filter achievement.AdminFilter) (paging.Result[achievement.Achievement], error)
	Recent(ctx context.Context, studentID int64) ([]achievement.Achievement, error)
}

type StudentLister interface {
	ListStudents(ctx context.Context, filter user.StudentFilter) ([]user.User, int, error)
}

type Service struct {
	repo         Repository
	achievements AchievementLister
	students     StudentLister
	cache        Cache
	cacheTTL     time.Duration
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewService builds the report service. cache may be nil, in which case every
// call goes to the database.
func NewService(repo Repository, achievements AchievementLister, students StudentLister, cache Cache, cacheTTL, queryTimeout time.Duration, logger *slog.Logger) *Service {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Service{
		repo:         repo,
		achievements: achievements,
		students:     students,
		cache:        cache,
		cacheTTL:     cacheTTL,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

func (s *Service) Dashboard(ctx context.Context, actor policy.Actor) (*Dashboard, error) {
	if !policy.CanViewReports(actor) {
		return nil, ErrStaffOnly
	}

	var d Dashboard
	if s.cached(ctx, dashboardKey, &d) {
		return &d, nil
	}

	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var err error
	if d.Counts, err = s.repo.StatusCounts(qctx); err != nil {
		return nil, err
	}
	if d.TotalStudents, err = s.repo.CountStudents(qctx); err != nil {
		return nil, err
	}
	if d.ByCategory, err = s.repo.ByCategory(qctx, false); err != nil {
		return nil, err
	}
	if d.ByDepartment, err = s.repo.ByDepartment(qctx, false); err != nil {
		return nil, err
	}
	if d.MonthlyTrend, err = s.repo.MonthlyTrend(qctx, trendMonths); err != nil {
		return nil, err
	}

	pending, err := s.achievements.ListPending(qctx, actor, achievement.AdminFilter{Limit: recentPendingLimit})
	if err != nil {
		return nil, err
	}
	d.RecentPending = make([]achievement.View, len(pending.Items))
	for i := range pending.Items {
		d.RecentPending[i] = pending.Items[i].View()
	}

	s.store(ctx, dashboardKey, d)
	return &d, nil
}

// Reports aggregates approved achievements only.
func (s *Service) Reports(ctx context.Context, actor policy.Actor) (*Reports, error) {
	if !policy.CanViewReports(actor) {
		return nil, ErrStaffOnly
	}

	var rep Reports
	if s.cached(ctx, reportsKey, &rep) {
		return &rep, nil
	}

	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var err error
	if rep.ByCategory, err = s.repo.ByCategory(qctx, true); err != nil {
		return nil, err
	}
	if rep.ByLevel, err = s.repo.ByLevel(qctx, true); err != nil {
		return nil, err
	}
	if rep.ByDepartment, err = s.repo.ByDepartment(qctx, true); err != nil {
		return nil, err
	}
	if rep.TopPerformers, err = s.repo.TopPerformers(qctx, topPerformerLimit); err != nil {
		return nil, err
	}
	if rep.MonthlyTrend, err = s.repo.MonthlyTrend(qctx, trendMonths); err != nil {
		return nil, err
	}

	s.store(ctx, reportsKey, rep)
	return &rep, nil
}

// StudentStats is the caller's own overview. Points only count approved work.
func (s *Service) StudentStats(ctx context.Context, actor policy.Actor) (*StudentOverview, error) {
	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	stats, err := s.repo.StudentStats(qctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	recent, err := s.achievements.Recent(qctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &StudentOverview{Stats: stats, RecentActivity: recent}, nil
}

// Students pages through active students with their achievement rollups.
func (s *Service) Students(ctx context.Context, actor policy.Actor, filter user.StudentFilter) (paging.Result[StudentSummary], error) {
	if !policy.CanViewReports(actor) {
		return paging.Result[StudentSummary]{}, ErrStaffOnly
	}
	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	p := paging.Params{Page: filter.Page, Limit: filter.Limit}.Normalize()
	filter.Page, filter.Limit = p.Page, p.Limit

	users, total, err := s.students.ListStudents(qctx, filter)
	if err != nil {
		return paging.Result[StudentSummary]{}, err
	}

	ids := make([]int64, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	counts, err := s.repo.StudentCounts(qctx, ids)
	if err != nil {
		return paging.Result[StudentSummary]{}, err
	}

	items := make([]StudentSummary, len(users))
	for i := range users {
		c := counts[users[i].ID]
		c.StudentID = users[i].ID
		items[i] = StudentSummary{Public: users[i].Public(), Stats: c}
	}
	return paging.NewResult(items, total, p), nil
}

// Invalidate drops cached dashboards after any achievement write.
func (s *Service) Invalidate(ctx context.Context) {
	NewInvalidator(s.cache, s.logger).Invalidate(ctx)
}

// Invalidator clears the cached dashboard and reports. Achievement writers
// hold one directly.
type Invalidator struct {
	cache  Cache
	logger *slog.Logger
}

func NewInvalidator(cache Cache, logger *slog.Logger) *Invalidator {
	return &Invalidator{cache: cache, logger: logger}
}

func (i *Invalidator) Invalidate(ctx context.Context) {
	if i.cache == nil {
		return
	}
	if err := i.cache.Delete(ctx, dashboardKey, reportsKey); err != nil {
		i.logger.WarnContext(ctx, "failed to invalidate report cache", "error", err)
	}
}

func (s *Service) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.WarnContext(ctx, "report cache read failed", "key", key, "error", err)
		return false
	}
	return hit
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "report cache write failed", "key", key, "error", err)
	}
}
