package report

import (
	"context"
	"slices"
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/metrics"
	"achievement-service/internal/user"

	"github.com/uptrace/bun"
)

const (
	approvedCount  = "COUNT(*) FILTER (WHERE a.status = 'approved')"
	approvedPoints = "COALESCE(SUM(a.points) FILTER (WHERE a.status = 'approved'), 0)"
)

// Repository runs the named aggregate queries behind dashboards and reports.
type Repository interface {
	StatusCounts(ctx context.Context) (StatusCounts, error)
	ByCategory(ctx context.Context, approvedOnly bool) ([]GroupCount, error)
	ByDepartment(ctx context.Context, approvedOnly bool) ([]GroupCount, error)
	ByLevel(ctx context.Context, approvedOnly bool) ([]GroupCount, error)
	MonthlyTrend(ctx context.Context, months int) ([]MonthBucket, error)
	TopPerformers(ctx context.Context, limit int) ([]Performer, error)
	StudentStats(ctx context.Context, studentID int64) (StudentStats, error)
	CountStudents(ctx context.Context) (int, error)
	StudentCounts(ctx context.Context, studentIDs []int64) (map[int64]StudentCounts, error)
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

func (r *repository) StatusCounts(ctx context.Context) (StatusCounts, error) {
	start := time.Now()
	var counts StatusCounts
	err := r.db.NewSelect().
		TableExpr("achievements AS a").
		ColumnExpr("COUNT(*) FILTER (WHERE a.status = ?) AS pending", achievement.StatusPending).
		ColumnExpr("COUNT(*) FILTER (WHERE a.status = ?) AS approved", achievement.StatusApproved).
		ColumnExpr("COUNT(*) FILTER (WHERE a.status = ?) AS rejected", achievement.StatusRejected).
		ColumnExpr("COUNT(*) AS total").
		Scan(ctx, &counts)

	r.metrics.Database.RecordQuery(ctx, "aggregate", "achievements", time.Since(start), err)

	return counts, err
}

func (r *repository) ByCategory(ctx context.Context, approvedOnly bool) ([]GroupCount, error) {
	return r.groupBy(ctx, "a.category", false, approvedOnly, 0)
}

func (r *repository) ByDepartment(ctx context.Context, approvedOnly bool) ([]GroupCount, error) {
	return r.groupBy(ctx, "u.department", true, approvedOnly, 0)
}

func (r *repository) ByLevel(ctx context.Context, approvedOnly bool) ([]GroupCount, error) {
	return r.groupBy(ctx, "a.level", false, approvedOnly, 0)
}

// groupBy counts achievements per value of expr, largest bucket first and
// ties broken by label. A non-zero studentID scopes it to one student.
func (r *repository) groupBy(ctx context.Context, expr string, joinUsers, approvedOnly bool, studentID int64) ([]GroupCount, error) {
	start := time.Now()
	var out []GroupCount
	q := r.db.NewSelect().
		TableExpr("achievements AS a").
		ColumnExpr(expr+" AS label").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr(approvedCount + " AS approved").
		ColumnExpr(approvedPoints + " AS points")
	if joinUsers {
		q = q.Join("JOIN users AS u ON u.id = a.student_id")
	}
	if approvedOnly {
		q = q.Where("a.status = ?", achievement.StatusApproved)
	}
	if studentID != 0 {
		q = q.Where("a.student_id = ?", studentID)
	}
	err := q.
		GroupExpr(expr).
		OrderExpr(`"count" DESC, label ASC`).
		Scan(ctx, &out)

	r.metrics.Database.RecordQuery(ctx, "aggregate", "achievements", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []GroupCount{}
	}
	return out, nil
}

// MonthlyTrend returns the latest months that have submissions, oldest first.
func (r *repository) MonthlyTrend(ctx context.Context, months int) ([]MonthBucket, error) {
	start := time.Now()
	var out []MonthBucket
	err := r.db.NewSelect().
		TableExpr("achievements AS a").
		ColumnExpr("EXTRACT(YEAR FROM a.created_at)::int AS year").
		ColumnExpr("EXTRACT(MONTH FROM a.created_at)::int AS month").
		ColumnExpr("COUNT(*) AS submitted").
		ColumnExpr(approvedCount + " AS approved").
		GroupExpr("year, month").
		OrderExpr("year DESC, month DESC").
		Limit(months).
		Scan(ctx, &out)

	r.metrics.Database.RecordQuery(ctx, "aggregate", "achievements", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	if out == nil {
		return []MonthBucket{}, nil
	}
	slices.Reverse(out)
	return out, nil
}

func (r *repository) TopPerformers(ctx context.Context, limit int) ([]Performer, error) {
	start := time.Now()
	var out []Performer
	err := r.db.NewSelect().
		TableExpr("achievements AS a").
		Join("JOIN users AS u ON u.id = a.student_id").
		ColumnExpr("u.id AS student_id").
		ColumnExpr("u.name AS name").
		ColumnExpr("u.department AS department").
		ColumnExpr("u.student_number AS student_number").
		ColumnExpr("SUM(a.points) AS total_points").
		ColumnExpr("COUNT(*) AS achievement_count").
		Where("a.status = ?", achievement.StatusApproved).
		GroupExpr("u.id").
		OrderExpr("total_points DESC, u.id ASC").
		Limit(limit).
		Scan(ctx, &out)

	r.metrics.Database.RecordQuery(ctx, "aggregate", "achievements", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Performer{}
	}
	return out, nil
}

func (r *repository) StudentStats(ctx context.Context, studentID int64) (StudentStats, error) {
	counts, err := r.StudentCounts(ctx, []int64{studentID})
	if err != nil {
		return StudentStats{}, err
	}
	c := counts[studentID]

	start := time.Now()
	var rejected int
	rejected, err = r.db.NewSelect().
		TableExpr("achievements AS a").
		Where("a.student_id = ?", studentID).
		Where("a.status = ?", achievement.StatusRejected).
		Count(ctx)

	r.metrics.Database.RecordQuery(ctx, "aggregate", "achievements", time.Since(start), err)

	if err != nil {
		return StudentStats{}, err
	}

	byCategory, err := r.groupBy(ctx, "a.category", false, false, studentID)
	if err != nil {
		return StudentStats{}, err
	}
	byLevel, err := r.groupBy(ctx, "a.level", false, true, studentID)
	if err != nil {
		return StudentStats{}, err
	}

	return StudentStats{
		Total:       c.Total,
		Approved:    c.Approved,
		Pending:     c.Pending,
		Rejected:    rejected,
		TotalPoints: c.Points,
		ByCategory:  byCategory,
		ByLevel:     byLevel,
	}, nil
}

func (r *repository) CountStudents(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := r.db.NewSelect().
		Model((*user.User)(nil)).
		Where("u.role = ?", user.RoleStudent).
		Where("u.is_active = TRUE").
		Count(ctx)

	r.metrics.Database.RecordQuery(ctx, "aggregate", "users", time.Since(start), err)

	return n, err
}

// StudentCounts rolls up achievements per student. Students without any
// achievement are absent from the map.
func (r *repository) StudentCounts(ctx context.Context, studentIDs []int64) (map[int64]StudentCounts, error) {
	out := make(map[int64]StudentCounts, len(studentIDs))
	if len(studentIDs) == 0 {
		return out, nil
	}

	start := time.Now()
	var rows []StudentCounts
	err := r.db.NewSelect().
		TableExpr("achievements AS a").
		ColumnExpr("a.student_id AS student_id").
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr(approvedCount+" AS approved").
		ColumnExpr("COUNT(*) FILTER (WHERE a.status = ?) AS pending", achievement.StatusPending).
		ColumnExpr(approvedPoints+" AS points").
		Where("a.student_id IN (?)", bun.In(studentIDs)).
		GroupExpr("a.student_id").
		Scan(ctx, &rows)

	r.metrics.Database.RecordQuery(ctx, "aggregate", "achievements", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.StudentID] = row
	}
	return out, nil
}
