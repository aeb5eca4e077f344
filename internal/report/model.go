package report

import (
	"achievement-service/internal/achievement"
	"achievement-service/internal/user"
)

type StatusCounts struct {
	Pending  int `bun:"pending" json:"pending"`
	Approved int `bun:"approved" json:"approved"`
	Rejected int `bun:"rejected" json:"rejected"`
	Total    int `bun:"total" json:"total"`
}

// GroupCount is one bucket of a grouped aggregate. Approved and Points only
// count approved achievements.
type GroupCount struct {
	Label    string `bun:"label" json:"label"`
	Count    int    `bun:"count" json:"count"`
	Approved int    `bun:"approved" json:"approved"`
	Points   int    `bun:"points" json:"points"`
}

type MonthBucket struct {
	Year      int `bun:"year" json:"year"`
	Month     int `bun:"month" json:"month"`
	Submitted int `bun:"submitted" json:"submitted"`
	Approved  int `bun:"approved" json:"approved"`
}

type Performer struct {
	StudentID        int64  `bun:"student_id" json:"studentId"`
	Name             string `bun:"name" json:"name"`
	Department       string `bun:"department" json:"department"`
	StudentNumber    string `bun:"student_number" json:"studentNumber,omitempty"`
	TotalPoints      int    `bun:"total_points" json:"totalPoints"`
	AchievementCount int    `bun:"achievement_count" json:"achievementCount"`
}

type StudentStats struct {
	Total       int          `json:"total"`
	Approved    int          `json:"approved"`
	Pending     int          `json:"pending"`
	Rejected    int          `json:"rejected"`
	TotalPoints int          `json:"totalPoints"`
	ByCategory  []GroupCount `json:"byCategory"`
	ByLevel     []GroupCount `json:"byLevel"`
}

// StudentCounts is the per-student rollup used by the admin student list.
type StudentCounts struct {
	StudentID int64 `bun:"student_id" json:"-"`
	Total     int   `bun:"total" json:"total"`
	Approved  int   `bun:"approved" json:"approved"`
	Pending   int   `bun:"pending" json:"pending"`
	Points    int   `bun:"points" json:"points"`
}

type StudentSummary struct {
	user.Public
	Stats StudentCounts `json:"stats"`
}

type Dashboard struct {
	Counts        StatusCounts       `json:"counts"`
	TotalStudents int                `json:"totalStudents"`
	ByCategory    []GroupCount       `json:"byCategory"`
	ByDepartment  []GroupCount       `json:"byDepartment"`
	MonthlyTrend  []MonthBucket      `json:"monthlyTrend"`
	RecentPending []achievement.View `json:"recentPending"`
}

type Reports struct {
	ByCategory    []GroupCount  `json:"byCategory"`
	ByLevel       []GroupCount  `json:"byLevel"`
	ByDepartment  []GroupCount  `json:"byDepartment"`
	TopPerformers []Performer   `json:"topPerformers"`
	MonthlyTrend  []MonthBucket `json:"monthlyTrend"`
}

type StudentOverview struct {
	Stats          StudentStats              `json:"stats"`
	RecentActivity []achievement.Achievement `json:"recentActivity"`
}
