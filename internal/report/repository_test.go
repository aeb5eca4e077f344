package report_test

import (
	"context"
	"testing"
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/metrics"
	"achievement-service/internal/report"
	"achievement-service/internal/user"
	"achievement-service/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func seedStudent(t *testing.T, db *bun.DB, name, email string, dept user.Department) *user.User {
	t.Helper()
	u := &user.User{
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		Role:         user.RoleStudent,
		Department:   dept,
		IsActive:     true,
	}
	_, err := db.NewInsert().Model(u).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return u
}

func seedAchievement(t *testing.T, db *bun.DB, studentID int64, category, level string, status achievement.Status, points int, created time.Time) {
	t.Helper()
	a := &achievement.Achievement{
		StudentID:   studentID,
		Title:       category + " " + level,
		Category:    category,
		Description: "seeded",
		Level:       level,
		AchievedOn:  created.Truncate(24 * time.Hour),
		ProofFiles:  []achievement.ProofFile{},
		Status:      status,
		IsPublic:    true,
		Tags:        []string{},
		Points:      points,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	_, err := db.NewInsert().Model(a).Exec(context.Background())
	require.NoError(t, err)
}

func TestReportRepositoryIntegration(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	repo := report.NewRepository(pgContainer.DB, metrics.NewMock())
	ctx := context.Background()
	may := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	june := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	// asha: 100 + 75 approved, 50 pending. ben: 300 approved, 20 rejected.
	// chen: 150 approved.
	seed := func(t *testing.T) (asha, ben, chen *user.User) {
		pgContainer.Reset(t)
		db := pgContainer.DB
		asha = seedStudent(t, db, "Asha", "asha@uni.test", user.DeptCSE)
		ben = seedStudent(t, db, "Ben", "ben@uni.test", user.DeptIT)
		chen = seedStudent(t, db, "Chen", "chen@uni.test", user.DeptCSE)

		seedAchievement(t, db, asha.ID, "Technical", "International", achievement.StatusApproved, 100, may)
		seedAchievement(t, db, asha.ID, "Sports", "National", achievement.StatusApproved, 75, may)
		seedAchievement(t, db, asha.ID, "Technical", "State", achievement.StatusPending, 50, june)
		seedAchievement(t, db, ben.ID, "Research", "International", achievement.StatusApproved, 100, may)
		seedAchievement(t, db, ben.ID, "Research", "International", achievement.StatusApproved, 100, june)
		seedAchievement(t, db, ben.ID, "Technical", "International", achievement.StatusApproved, 100, june)
		seedAchievement(t, db, ben.ID, "Cultural", "College", achievement.StatusRejected, 20, june)
		seedAchievement(t, db, chen.ID, "Technical", "International", achievement.StatusApproved, 100, june)
		seedAchievement(t, db, chen.ID, "Sports", "State", achievement.StatusApproved, 50, june)
		return asha, ben, chen
	}

	t.Run("StatusCounts", func(t *testing.T) {
		seed(t)

		counts, err := repo.StatusCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, report.StatusCounts{Pending: 1, Approved: 7, Rejected: 1, Total: 9}, counts)
	})

	t.Run("ByCategoryOrdersLargestFirst", func(t *testing.T) {
		seed(t)

		all, err := repo.ByCategory(ctx, false)
		require.NoError(t, err)
		require.NotEmpty(t, all)
		assert.Equal(t, "Technical", all[0].Label)
		assert.Equal(t, 4, all[0].Count)
		assert.Equal(t, 3, all[0].Approved)

		approved, err := repo.ByCategory(ctx, true)
		require.NoError(t, err)
		for _, g := range approved {
			assert.NotEqual(t, "Cultural", g.Label)
		}
	})

	t.Run("ByDepartmentJoinsUsers", func(t *testing.T) {
		seed(t)

		groups, err := repo.ByDepartment(ctx, true)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "CSE", groups[0].Label)
		assert.Equal(t, 4, groups[0].Count)
		assert.Equal(t, 325, groups[0].Points)
		assert.Equal(t, "IT", groups[1].Label)
		assert.Equal(t, 300, groups[1].Points)
	})

	t.Run("MonthlyTrendOldestFirst", func(t *testing.T) {
		seed(t)

		trend, err := repo.MonthlyTrend(ctx, 12)
		require.NoError(t, err)
		require.Len(t, trend, 2)
		assert.Equal(t, report.MonthBucket{Year: 2024, Month: 5, Submitted: 3, Approved: 3}, trend[0])
		assert.Equal(t, report.MonthBucket{Year: 2024, Month: 6, Submitted: 6, Approved: 4}, trend[1])

		latest, err := repo.MonthlyTrend(ctx, 1)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, 6, latest[0].Month)
	})

	t.Run("TopPerformersRankedByApprovedPoints", func(t *testing.T) {
		_, ben, chen := seed(t)

		top, err := repo.TopPerformers(ctx, 10)
		require.NoError(t, err)
		require.Len(t, top, 3)

		points := []int{top[0].TotalPoints, top[1].TotalPoints, top[2].TotalPoints}
		assert.Equal(t, []int{300, 175, 150}, points)
		assert.Equal(t, ben.ID, top[0].StudentID)
		assert.Equal(t, 3, top[0].AchievementCount)
		assert.Equal(t, chen.ID, top[2].StudentID)
	})

	t.Run("StudentStatsCountsOnlyApprovedPoints", func(t *testing.T) {
		asha, _, _ := seed(t)

		stats, err := repo.StudentStats(ctx, asha.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 2, stats.Approved)
		assert.Equal(t, 1, stats.Pending)
		assert.Equal(t, 0, stats.Rejected)
		assert.Equal(t, 175, stats.TotalPoints)
		assert.Len(t, stats.ByCategory, 2)
		assert.Len(t, stats.ByLevel, 2)
	})

	t.Run("StudentStatsWithoutAchievements", func(t *testing.T) {
		pgContainer.Reset(t)
		lone := seedStudent(t, pgContainer.DB, "Lone", "lone@uni.test", user.DeptME)

		stats, err := repo.StudentStats(ctx, lone.ID)
		require.NoError(t, err)
		assert.Zero(t, stats.Total)
		assert.Empty(t, stats.ByCategory)
	})

	t.Run("CountStudentsAndRollups", func(t *testing.T) {
		asha, ben, _ := seed(t)

		n, err := repo.CountStudents(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		counts, err := repo.StudentCounts(ctx, []int64{asha.ID, ben.ID, 99999})
		require.NoError(t, err)
		assert.Equal(t, 175, counts[asha.ID].Points)
		assert.Equal(t, 1, counts[asha.ID].Pending)
		assert.Equal(t, 4, counts[ben.ID].Total)
		assert.Equal(t, 300, counts[ben.ID].Points)
		_, ok := counts[99999]
		assert.False(t, ok)
	})
}
