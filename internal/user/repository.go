package user

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
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByResetTokenHash(ctx context.Context, hash string, now time.Time) (*User, error)
	Update(ctx context.Context, u *User, columns ...string) error
	ListStudents(ctx context.Context, filter StudentFilter) ([]User, int, error)
	ActiveStudentEmails(ctx context.Context) ([]string, error)
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

func (r *repository) Create(ctx context.Context, u *User) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(u).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "users", time.Since(start), err)

	if db.IsUniqueViolation(err) {
		return ErrEmailExists
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*User, error) {
	start := time.Now()
	u := new(User)
	err := r.db.NewSelect().Model(u).Where("u.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	start := time.Now()
	u := new(User)
	err := r.db.NewSelect().
		Model(u).
		Where("u.email = ?", NormalizeEmail(email)).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *repository) GetByResetTokenHash(ctx context.Context, hash string, now time.Time) (*User, error) {
	start := time.Now()
	u := new(User)
	err := r.db.NewSelect().
		Model(u).
		Where("u.reset_token_hash = ?", hash).
		Where("u.reset_token_expires_at > ?", now).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// Update writes the named columns of u. updated_at is always refreshed.
func (r *repository) Update(ctx context.Context, u *User, columns ...string) error {
	start := time.Now()
	u.UpdatedAt = time.Now()

	q := r.db.NewUpdate().Model(u).WherePK()
	if len(columns) > 0 {
		q = q.Column(append(columns, "updated_at")...)
	}
	result, err := q.Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "users", time.Since(start), err)

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

func (r *repository) ListStudents(ctx context.Context, filter StudentFilter) ([]User, int, error) {
	start := time.Now()
	p := paging.Params{Page: filter.Page, Limit: filter.Limit}.Normalize()

	var users []User
	q := r.db.NewSelect().
		Model(&users).
		Where("u.role = ?", RoleStudent).
		Where("u.is_active = TRUE")
	if filter.Department != "" {
		q = q.Where("u.department = ?", filter.Department)
	}
	if filter.Batch != "" {
		q = q.Where("u.batch = ?", filter.Batch)
	}
	if filter.Semester > 0 {
		q = q.Where("u.semester = ?", filter.Semester)
	}
	if filter.Search != "" {
		like := db.Contains(filter.Search)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("u.name ILIKE ?", like).
				WhereOr("u.email ILIKE ?", like).
				WhereOr("u.student_number ILIKE ?", like)
		})
	}
	total, err := q.
		Order("u.name ASC", "u.id ASC").
		Limit(p.Limit).
		Offset(p.Offset()).
		ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *repository) ActiveStudentEmails(ctx context.Context) ([]string, error) {
	start := time.Now()
	var emails []string
	err := r.db.NewSelect().
		Model((*User)(nil)).
		Column("email").
		Where("role = ?", RoleStudent).
		Where("is_active = TRUE").
		Order("id ASC").
		Scan(ctx, &emails)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	return emails, err
}
