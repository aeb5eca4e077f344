package report_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/apperr"
	"achievement-service/internal/paging"
	"achievement-service/internal/policy"
	"achievement-service/internal/report"
	"achievement-service/internal/user"
	"achievement-service/internal/user/usertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	calls  int
	counts map[int64]report.StudentCounts
}

func (r *stubRepo) StatusCounts(ctx context.Context) (report.StatusCounts, error) {
	r.calls++
	return report.StatusCounts{Pending: 2, Approved: 3, Rejected: 1, Total: 6}, nil
}

func (r *stubRepo) ByCategory(ctx context.Context, approvedOnly bool) ([]report.GroupCount, error) {
	return []report.GroupCount{{Label: "Technical", Count: 4}}, nil
}

func (r *stubRepo) ByDepartment(ctx context.Context, approvedOnly bool) ([]report.GroupCount, error) {
	return []report.GroupCount{{Label: "CSE", Count: 6}}, nil
}

func (r *stubRepo) ByLevel(ctx context.Context, approvedOnly bool) ([]report.GroupCount, error) {
	return []report.GroupCount{{Label: "National", Count: 3, Approved: 3, Points: 225}}, nil
}

func (r *stubRepo) MonthlyTrend(ctx context.Context, months int) ([]report.MonthBucket, error) {
	return []report.MonthBucket{{Year: 2024, Month: 5, Submitted: 6, Approved: 3}}, nil
}

func (r *stubRepo) TopPerformers(ctx context.Context, limit int) ([]report.Performer, error) {
	r.calls++
	return []report.Performer{{StudentID: 1, Name: "Asha", TotalPoints: 225}}, nil
}

func (r *stubRepo) StudentStats(ctx context.Context, studentID int64) (report.StudentStats, error) {
	return report.StudentStats{Total: 2, Approved: 1, Pending: 1, TotalPoints: 75}, nil
}

func (r *stubRepo) CountStudents(ctx context.Context) (int, error) {
	return 42, nil
}

func (r *stubRepo) StudentCounts(ctx context.Context, ids []int64) (map[int64]report.StudentCounts, error) {
	out := make(map[int64]report.StudentCounts)
	for _, id := range ids {
		if c, ok := r.counts[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

type stubAchievements struct {
	pending []achievement.Achievement
}

func (s *stubAchievements) ListPending(ctx context.Context, actor policy.Actor, filter achievement.AdminFilter) (paging.Result[achievement.Achievement], error) {
	items := s.pending
	if len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return paging.NewResult(items, len(s.pending), paging.Params{Page: 1, Limit: filter.Limit}), nil
}

func (s *stubAchievements) Recent(ctx context.Context, studentID int64) ([]achievement.Achievement, error) {
	return []achievement.Achievement{{ID: 9, StudentID: studentID, Title: "Hackathon"}}, nil
}

// mapCache stores values in memory and can be told to fail every call.
type mapCache struct {
	values  map[string]any
	deleted []string
	fail    bool
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string]any)}
}

func (c *mapCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.fail {
		return false, errors.New("redis down")
	}
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *report.Dashboard:
		*d = v.(report.Dashboard)
	case *report.Reports:
		*d = v.(report.Reports)
	}
	return true, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.fail {
		return errors.New("redis down")
	}
	c.values[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	c.deleted = append(c.deleted, keys...)
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

var (
	faculty = policy.Actor{UserID: 10, Role: user.RoleFaculty, Active: true}
	student = policy.Actor{UserID: 1, Role: user.RoleStudent, Active: true}
)

func newService(repo *stubRepo, cache report.Cache, users *usertest.Memory) *report.Service {
	pending := make([]achievement.Achievement, 8)
	for i := range pending {
		pending[i] = achievement.Achievement{ID: int64(i + 1), Status: achievement.StatusPending}
	}
	if users == nil {
		users = usertest.NewMemory()
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return report.NewService(repo, &stubAchievements{pending: pending}, users, cache, time.Minute, time.Second, logger)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()

	t.Run("AggregatesAndCapsRecentPending", func(t *testing.T) {
		svc := newService(&stubRepo{}, nil, nil)

		d, err := svc.Dashboard(ctx, faculty)
		require.NoError(t, err)
		assert.Equal(t, 6, d.Counts.Total)
		assert.Equal(t, 42, d.TotalStudents)
		assert.Len(t, d.RecentPending, 5)
		assert.Len(t, d.MonthlyTrend, 1)
	})

	t.Run("StudentsForbidden", func(t *testing.T) {
		svc := newService(&stubRepo{}, nil, nil)

		_, err := svc.Dashboard(ctx, student)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("SecondCallServedFromCache", func(t *testing.T) {
		repo := &stubRepo{}
		svc := newService(repo, newMapCache(), nil)

		_, err := svc.Dashboard(ctx, faculty)
		require.NoError(t, err)
		d, err := svc.Dashboard(ctx, faculty)
		require.NoError(t, err)
		assert.Equal(t, 1, repo.calls)
		assert.Equal(t, 42, d.TotalStudents)
	})

	t.Run("InvalidateForcesRecompute", func(t *testing.T) {
		repo := &stubRepo{}
		cache := newMapCache()
		svc := newService(repo, cache, nil)

		_, err := svc.Dashboard(ctx, faculty)
		require.NoError(t, err)
		svc.Invalidate(ctx)
		_, err = svc.Dashboard(ctx, faculty)
		require.NoError(t, err)

		assert.Equal(t, 2, repo.calls)
		assert.ElementsMatch(t, []string{"dashboard", "reports"}, cache.deleted)
	})

	t.Run("CacheFailureFallsBackToDatabase", func(t *testing.T) {
		repo := &stubRepo{}
		cache := newMapCache()
		cache.fail = true
		svc := newService(repo, cache, nil)

		d, err := svc.Dashboard(ctx, faculty)
		require.NoError(t, err)
		assert.Equal(t, 3, d.Counts.Approved)
	})
}

func TestReports(t *testing.T) {
	ctx := context.Background()

	t.Run("StaffSeeTopPerformers", func(t *testing.T) {
		svc := newService(&stubRepo{}, nil, nil)

		rep, err := svc.Reports(ctx, faculty)
		require.NoError(t, err)
		require.Len(t, rep.TopPerformers, 1)
		assert.Equal(t, 225, rep.TopPerformers[0].TotalPoints)
		assert.Equal(t, 225, rep.ByLevel[0].Points)
	})

	t.Run("StudentsForbidden", func(t *testing.T) {
		svc := newService(&stubRepo{}, nil, nil)

		_, err := svc.Reports(ctx, student)
		assert.ErrorIs(t, err, report.ErrStaffOnly)
	})
}

func TestStudentStats(t *testing.T) {
	svc := newService(&stubRepo{}, nil, nil)

	overview, err := svc.StudentStats(context.Background(), student)
	require.NoError(t, err)
	assert.Equal(t, 75, overview.Stats.TotalPoints)
	require.Len(t, overview.RecentActivity, 1)
	assert.Equal(t, int64(1), overview.RecentActivity[0].StudentID)
}

func TestStudents(t *testing.T) {
	ctx := context.Background()
	users := usertest.NewMemory()
	asha := users.Add(user.User{Name: "Asha", Email: "asha@uni.test", Role: user.RoleStudent, Department: user.DeptCSE, IsActive: true})
	ben := users.Add(user.User{Name: "Ben", Email: "ben@uni.test", Role: user.RoleStudent, Department: user.DeptIT, IsActive: true})
	users.Add(user.User{Name: "Prof", Email: "prof@uni.test", Role: user.RoleFaculty, Department: user.DeptCSE, IsActive: true})

	repo := &stubRepo{counts: map[int64]report.StudentCounts{
		asha.ID: {StudentID: asha.ID, Total: 3, Approved: 2, Pending: 1, Points: 150},
	}}
	svc := newService(repo, nil, users)

	t.Run("EnrichesWithCounts", func(t *testing.T) {
		result, err := svc.Students(ctx, faculty, user.StudentFilter{})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		require.Len(t, result.Items, 2)

		assert.Equal(t, "Asha", result.Items[0].Name)
		assert.Equal(t, 150, result.Items[0].Stats.Points)
		assert.Equal(t, ben.ID, result.Items[1].ID)
		assert.Zero(t, result.Items[1].Stats.Total)
	})

	t.Run("DepartmentFilter", func(t *testing.T) {
		result, err := svc.Students(ctx, faculty, user.StudentFilter{Department: user.DeptIT})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "Ben", result.Items[0].Name)
	})

	t.Run("StudentsForbidden", func(t *testing.T) {
		_, err := svc.Students(ctx, student, user.StudentFilter{})
		assert.ErrorIs(t, err, report.ErrStaffOnly)
	})
}
