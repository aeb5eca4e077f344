package notice

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"achievement-service/internal/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, n *Notice) error
	GetByID(ctx context.Context, id int64) (*Notice, error)
	List(ctx context.Context) ([]Notice, error)
	Delete(ctx context.Context, id int64) error
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

func (r *repository) Create(ctx context.Context, n *Notice) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(n).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "notices", time.Since(start), err)

	return err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Notice, error) {
	start := time.Now()
	n := new(Notice)
	err := r.db.NewSelect().Model(n).Where("n.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "notices", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *repository) List(ctx context.Context) ([]Notice, error) {
	start := time.Now()
	var notices []Notice
	err := r.db.NewSelect().
		Model(&notices).
		Relation("Author").
		Order("n.created_at DESC", "n.id DESC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "notices", time.Since(start), err)

	return notices, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Notice)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "notices", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
