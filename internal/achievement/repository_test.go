package achievement_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/metrics"
	"achievement-service/internal/user"
	"achievement-service/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func seedUser(t *testing.T, db *bun.DB, name, email string, dept user.Department) *user.User {
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

func newAchievement(studentID int64, title string, status achievement.Status, created time.Time) *achievement.Achievement {
	return &achievement.Achievement{
		StudentID:   studentID,
		Title:       title,
		Category:    "Technical",
		Description: "desc " + title,
		Level:       "College",
		AchievedOn:  created.Truncate(24 * time.Hour),
		ProofFiles:  []achievement.ProofFile{},
		Status:      status,
		IsPublic:    true,
		Tags:        []string{"go"},
		Points:      20,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestRepositoryIntegration(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	repo := achievement.NewRepository(pgContainer.DB, metrics.NewMock())
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("CreateAndGetRoundTripsJSONBAndArray", func(t *testing.T) {
		pgContainer.Reset(t)
		s := seedUser(t, pgContainer.DB, "Asha", "asha@uni.test", user.DeptCSE)

		a := newAchievement(s.ID, "Robotics", achievement.StatusPending, base)
		a.ProofFiles = []achievement.ProofFile{{Filename: "proof-1.pdf", OriginalName: "cert.pdf", URL: "/uploads/proof-1.pdf"}}
		a.Tags = []string{"robots", "arduino"}
		require.NoError(t, repo.Create(ctx, a))
		require.NotZero(t, a.ID)

		got, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Robotics", got.Title)
		assert.Equal(t, []string{"robots", "arduino"}, got.Tags)
		require.Len(t, got.ProofFiles, 1)
		assert.Equal(t, "cert.pdf", got.ProofFiles[0].OriginalName)
		assert.Nil(t, got.VerifiedBy)
	})

	t.Run("GetMissing", func(t *testing.T) {
		pgContainer.Reset(t)

		_, err := repo.GetByID(ctx, 12345)
		assert.ErrorIs(t, err, achievement.ErrNotFound)
	})

	t.Run("ThirdPageHoldsRemainder", func(t *testing.T) {
		pgContainer.Reset(t)
		s := seedUser(t, pgContainer.DB, "Ravi", "ravi@uni.test", user.DeptIT)
		for i := 0; i < 25; i++ {
			require.NoError(t, repo.Create(ctx, newAchievement(s.ID, fmt.Sprintf("A%02d", i), achievement.StatusPending, base.Add(time.Duration(i)*time.Minute))))
		}

		items, total, err := repo.ListByStudent(ctx, s.ID, achievement.ListFilter{Page: 3, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 25, total)
		require.Len(t, items, 5)
		assert.Equal(t, "A04", items[0].Title)
		assert.Equal(t, "A00", items[4].Title)
	})

	t.Run("FiltersAndSearch", func(t *testing.T) {
		pgContainer.Reset(t)
		s := seedUser(t, pgContainer.DB, "Meera", "meera@uni.test", user.DeptECE)
		require.NoError(t, repo.Create(ctx, newAchievement(s.ID, "Chess Open", achievement.StatusApproved, base)))
		require.NoError(t, repo.Create(ctx, newAchievement(s.ID, "Football", achievement.StatusPending, base.Add(time.Hour))))
		require.NoError(t, repo.Create(ctx, newAchievement(s.ID, "100%_Attendance", achievement.StatusPending, base.Add(2*time.Hour))))

		items, total, err := repo.ListByStudent(ctx, s.ID, achievement.ListFilter{Status: achievement.StatusPending})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, items, 2)

		items, _, err = repo.ListByStudent(ctx, s.ID, achievement.ListFilter{Search: "CHESS"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Chess Open", items[0].Title)

		items, _, err = repo.ListByStudent(ctx, s.ID, achievement.ListFilter{Search: "%_"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "100%_Attendance", items[0].Title)
	})

	t.Run("ListAllJoinsStudentAndFiltersDepartment", func(t *testing.T) {
		pgContainer.Reset(t)
		cse := seedUser(t, pgContainer.DB, "Kiran", "kiran@uni.test", user.DeptCSE)
		me := seedUser(t, pgContainer.DB, "Dev", "dev@uni.test", user.DeptME)
		require.NoError(t, repo.Create(ctx, newAchievement(cse.ID, "Compiler", achievement.StatusPending, base)))
		require.NoError(t, repo.Create(ctx, newAchievement(me.ID, "Engine", achievement.StatusPending, base.Add(time.Hour))))

		items, total, err := repo.ListAll(ctx, achievement.AdminFilter{Department: user.DeptME})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, items, 1)
		require.NotNil(t, items[0].Student)
		assert.Equal(t, "Dev", items[0].Student.Name)

		items, _, err = repo.ListAll(ctx, achievement.AdminFilter{Search: "kiran"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Compiler", items[0].Title)
	})

	t.Run("UpdateAndDelete", func(t *testing.T) {
		pgContainer.Reset(t)
		s := seedUser(t, pgContainer.DB, "Lina", "lina@uni.test", user.DeptCE)
		a := newAchievement(s.ID, "Bridge", achievement.StatusRejected, base)
		require.NoError(t, repo.Create(ctx, a))

		a.Title = "Bridge v2"
		a.Status = achievement.StatusPending
		a.ProofFiles = append(a.ProofFiles, achievement.ProofFile{Filename: "p.png"})
		require.NoError(t, repo.Update(ctx, a))

		got, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Bridge v2", got.Title)
		assert.Equal(t, achievement.StatusPending, got.Status)
		assert.Len(t, got.ProofFiles, 1)

		require.NoError(t, repo.Delete(ctx, a.ID))
		assert.ErrorIs(t, repo.Delete(ctx, a.ID), achievement.ErrNotFound)
	})

	t.Run("PublicApprovedOnly", func(t *testing.T) {
		pgContainer.Reset(t)
		s := seedUser(t, pgContainer.DB, "Zoya", "zoya@uni.test", user.DeptEEE)
		require.NoError(t, repo.Create(ctx, newAchievement(s.ID, "Shown", achievement.StatusApproved, base)))
		hidden := newAchievement(s.ID, "Hidden", achievement.StatusApproved, base)
		hidden.IsPublic = false
		require.NoError(t, repo.Create(ctx, hidden))
		require.NoError(t, repo.Create(ctx, newAchievement(s.ID, "Waiting", achievement.StatusPending, base)))

		items, err := repo.ListPublicApproved(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Shown", items[0].Title)
	})
}
