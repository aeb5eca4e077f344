package event

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"achievement-service/internal/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id int64) (*Event, error)
	List(ctx context.Context, category string) ([]Event, error)
	Update(ctx context.Context, e *Event) error
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

func (r *repository) Create(ctx context.Context, e *Event) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(e).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "events", time.Since(start), err)

	return err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Event, error) {
	start := time.Now()
	e := new(Event)
	err := r.db.NewSelect().Model(e).Where("e.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "events", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns events latest date first, optionally for one category.
func (r *repository) List(ctx context.Context, category string) ([]Event, error) {
	start := time.Now()
	var out []Event
	q := r.db.NewSelect().
		Model(&out).
		Relation("Author")
	if category != "" {
		q = q.Where("e.category = ?", category)
	}
	err := q.Order("e.starts_at DESC", "e.id DESC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "events", time.Since(start), err)

	return out, err
}

func (r *repository) Update(ctx context.Context, e *Event) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(e).
		Column("title", "description", "category", "starts_at", "venue", "registration_link", "updated_at").
		WherePK().
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "events", time.Since(start), err)

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

func (r *repository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Event)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "events", time.Since(start), err)

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
