package achievement

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"achievement-service/internal/db"
	"achievement-service/internal/metrics"
	"achievement-service/internal/paging"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, a *Achievement) error
	GetByID(ctx context.Context, id int64) (*Achievement, error)
	Update(ctx context.Context, a *Achievement) error
	Delete(ctx context.Context, id int64) error
	ListByStudent(ctx context.Context, studentID int64, filter ListFilter) ([]Achievement, int, error)
	ListAll(ctx context.Context, filter AdminFilter) ([]Achievement, int, error)
	RecentByStudent(ctx context.Context, studentID int64, limit int) ([]Achievement, error)
	ListPublicApproved(ctx context.Context, studentID int64) ([]Achievement, error)
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

func (r *repository) Create(ctx context.Context, a *Achievement) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(a).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "achievements", time.Since(start), err)

	return err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Achievement, error) {
	start := time.Now()
	a := new(Achievement)
	err := r.db.NewSelect().Model(a).Where("a.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "achievements", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// Update writes the owner-editable columns plus status and points. Review
// columns are owned by the verification workflow and are left alone.
func (r *repository) Update(ctx context.Context, a *Achievement) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(a).
		Column("title", "category", "description", "level", "achieved_on", "institution",
			"proof_files", "status", "is_public", "tags", "points", "updated_at").
		WherePK().
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "achievements", time.Since(start), err)

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
	result, err := r.db.NewDelete().Model((*Achievement)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "achievements", time.Since(start), err)

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

func (r *repository) ListByStudent(ctx context.Context, studentID int64, filter ListFilter) ([]Achievement, int, error) {
	start := time.Now()
	p := paging.Params{Page: filter.Page, Limit: filter.Limit}.Normalize()

	var items []Achievement
	q := r.db.NewSelect().
		Model(&items).
		Where("a.student_id = ?", studentID)
	if filter.Status != "" {
		q = q.Where("a.status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("a.category = ?", filter.Category)
	}
	if filter.Level != "" {
		q = q.Where("a.level = ?", filter.Level)
	}
	if filter.Search != "" {
		like := db.Contains(filter.Search)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("a.title ILIKE ?", like).WhereOr("a.description ILIKE ?", like)
		})
	}
	total, err := q.
		Order("a.created_at DESC", "a.id DESC").
		Limit(p.Limit).
		Offset(p.Offset()).
		ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "achievements", time.Since(start), err)

	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) ListAll(ctx context.Context, filter AdminFilter) ([]Achievement, int, error) {
	start := time.Now()
	p := paging.Params{Page: filter.Page, Limit: filter.Limit}.Normalize()

	var items []Achievement
	q := r.db.NewSelect().
		Model(&items).
		Relation("Student")
	if filter.Status != "" {
		q = q.Where("a.status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("a.category = ?", filter.Category)
	}
	if filter.Department != "" {
		q = q.Where("student.department = ?", filter.Department)
	}
	if filter.Search != "" {
		like := db.Contains(filter.Search)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("a.title ILIKE ?", like).WhereOr("student.name ILIKE ?", like)
		})
	}
	total, err := q.
		Order("a.created_at DESC", "a.id DESC").
		Limit(p.Limit).
		Offset(p.Offset()).
		ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "achievements", time.Since(start), err)

	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) RecentByStudent(ctx context.Context, studentID int64, limit int) ([]Achievement, error) {
	start := time.Now()
	var items []Achievement
	err := r.db.NewSelect().
		Model(&items).
		Where("a.student_id = ?", studentID).
		Order("a.created_at DESC", "a.id DESC").
		Limit(limit).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "achievements", time.Since(start), err)

	return items, err
}

// ListPublicApproved returns the portfolio entries of a student, newest first.
func (r *repository) ListPublicApproved(ctx context.Context, studentID int64) ([]Achievement, error) {
	start := time.Now()
	var items []Achievement
	err := r.db.NewSelect().
		Model(&items).
		Where("a.student_id = ?", studentID).
		Where("a.status = ?", StatusApproved).
		Where("a.is_public = TRUE").
		Order("a.created_at DESC", "a.id DESC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "achievements", time.Since(start), err)

	return items, err
}
