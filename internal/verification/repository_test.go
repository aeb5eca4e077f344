package verification_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/metrics"
	"achievement-service/internal/user"
	"achievement-service/internal/verification"
	"achievement-service/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryIntegration(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	ctx := context.Background()
	db := pgContainer.DB
	repo := verification.NewRepository(db, metrics.NewMock())
	achievements := achievement.NewRepository(db, metrics.NewMock())

	seed := func(t *testing.T) (*user.User, *achievement.Achievement) {
		t.Helper()
		pgContainer.Reset(t)

		u := &user.User{Name: "Student", Email: "s@uni.test", PasswordHash: "x", Role: user.RoleStudent, Department: user.DeptCSE, IsActive: true}
		_, err := db.NewInsert().Model(u).Returning("*").Exec(ctx)
		require.NoError(t, err)

		now := time.Now().UTC()
		a := &achievement.Achievement{
			StudentID:   u.ID,
			Title:       "Quiz",
			Category:    "Academic",
			Description: "State quiz",
			Level:       "State",
			AchievedOn:  now.Truncate(24 * time.Hour),
			ProofFiles:  []achievement.ProofFile{},
			Status:      achievement.StatusPending,
			IsPublic:    true,
			Tags:        []string{},
			Points:      50,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		require.NoError(t, achievements.Create(ctx, a))
		return u, a
	}

	t.Run("ApplyWritesRecordAndStatusTogether", func(t *testing.T) {
		_, a := seed(t)

		rec := &verification.Record{
			AchievementID: a.ID,
			VerifiedBy:    99,
			Action:        verification.ActionApproved,
			Remarks:       "ok",
			NewStatus:     achievement.StatusApproved,
			CreatedAt:     time.Now().UTC(),
		}
		updated, err := repo.Apply(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, achievement.StatusApproved, updated.Status)
		assert.NotZero(t, rec.ID)

		stored, err := achievements.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, achievement.StatusApproved, stored.Status)
		assert.Equal(t, "ok", stored.Remarks)
		require.NotNil(t, stored.VerifiedBy)
		assert.Equal(t, int64(99), *stored.VerifiedBy)
		assert.NotNil(t, stored.VerifiedAt)

		records, err := repo.ListByAchievement(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, achievement.StatusPending, records[0].PreviousStatus)
		assert.Equal(t, achievement.StatusApproved, records[0].NewStatus)
	})

	t.Run("NonPendingLeavesNoRecord", func(t *testing.T) {
		_, a := seed(t)
		_, err := repo.Apply(ctx, &verification.Record{AchievementID: a.ID, VerifiedBy: 1, Action: verification.ActionRejected, NewStatus: achievement.StatusRejected, CreatedAt: time.Now()})
		require.NoError(t, err)

		_, err = repo.Apply(ctx, &verification.Record{AchievementID: a.ID, VerifiedBy: 1, Action: verification.ActionApproved, NewStatus: achievement.StatusApproved, CreatedAt: time.Now()})
		assert.ErrorIs(t, err, verification.ErrNotPending)

		records, err := repo.ListByAchievement(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("MissingAchievement", func(t *testing.T) {
		pgContainer.Reset(t)

		_, err := repo.Apply(ctx, &verification.Record{AchievementID: 404, VerifiedBy: 1, Action: verification.ActionApproved, NewStatus: achievement.StatusApproved, CreatedAt: time.Now()})
		assert.ErrorIs(t, err, achievement.ErrNotFound)
	})

	t.Run("ConcurrentApplySerializesOnRowLock", func(t *testing.T) {
		_, a := seed(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, status := range []achievement.Status{achievement.StatusApproved, achievement.StatusRejected} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = repo.Apply(ctx, &verification.Record{
					AchievementID: a.ID,
					VerifiedBy:    int64(10 + i),
					Action:        verification.Action(status),
					NewStatus:     status,
					CreatedAt:     time.Now(),
				})
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, verification.ErrNotPending)
			}
		}
		assert.Equal(t, 1, succeeded)

		records, err := repo.ListByAchievement(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("DeletingAchievementKeepsLog", func(t *testing.T) {
		_, a := seed(t)
		_, err := repo.Apply(ctx, &verification.Record{AchievementID: a.ID, VerifiedBy: 1, Action: verification.ActionRejected, NewStatus: achievement.StatusRejected, CreatedAt: time.Now()})
		require.NoError(t, err)

		require.NoError(t, achievements.Delete(ctx, a.ID))

		records, err := repo.ListByAchievement(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}
