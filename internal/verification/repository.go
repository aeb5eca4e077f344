package verification

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	// Apply locks the achievement, appends rec and moves the achievement to
	// rec.NewStatus in one transaction. The achievement must be pending.
	Apply(ctx context.Context, rec *Record) (*achievement.Achievement, error)
	ListByAchievement(ctx context.Context, achievementID int64) ([]Record, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) Apply(ctx context.Context, rec *Record) (*achievement.Achievement, error) {
	start := time.Now()
	a := new(achievement.Achievement)

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(a).
			Where("a.id = ?", rec.AchievementID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return achievement.ErrNotFound
			}
			return err
		}
		if a.Status != achievement.StatusPending {
			return ErrNotPending
		}

		rec.PreviousStatus = a.Status
		if _, err := tx.NewInsert().Model(rec).Returning("*").Exec(ctx); err != nil {
			return err
		}

		verifiedAt := rec.CreatedAt
		a.Status = rec.NewStatus
		a.Remarks = rec.Remarks
		a.VerifiedBy = &rec.VerifiedBy
		a.VerifiedAt = &verifiedAt
		a.UpdatedAt = rec.CreatedAt

		_, err = tx.NewUpdate().
			Model(a).
			Column("status", "remarks", "verified_by", "verified_at", "updated_at").
			WherePK().
			Exec(ctx)
		return err
	})

	r.metrics.Database.RecordQuery(ctx, "transaction", "verifications", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repository) ListByAchievement(ctx context.Context, achievementID int64) ([]Record, error) {
	start := time.Now()
	var records []Record
	err := r.db.NewSelect().
		Model(&records).
		Where("v.achievement_id = ?", achievementID).
		Order("v.created_at ASC", "v.id ASC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "verifications", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
