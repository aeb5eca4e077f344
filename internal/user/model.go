package user

import (
	"strings"
	"time"

	"achievement-service/internal/apperr"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

type Department string

const (
	DeptCSE   Department = "CSE"
	DeptIT    Department = "IT"
	DeptECE   Department = "ECE"
	DeptEEE   Department = "EEE"
	DeptME    Department = "ME"
	DeptCE    Department = "CE"
	DeptOther Department = "Other"
)

// Departments is the closed set accepted on registration.
var Departments = []Department{DeptCSE, DeptIT, DeptECE, DeptEEE, DeptME, DeptCE, DeptOther}

var (
	ErrNotFound    = apperr.New(apperr.ErrNotFound, "user not found")
	ErrEmailExists = apperr.New(apperr.ErrConflict, "email already exists")
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                  int64      `bun:"id,pk,autoincrement" json:"id"`
	Name                string     `bun:"name,notnull" json:"name"`
	Email               string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash        string     `bun:"password_hash,notnull" json:"-"`
	Role                Role       `bun:"role,notnull" json:"role"`
	Department          Department `bun:"department,notnull" json:"department"`
	StudentNumber       string     `bun:"student_number" json:"studentId,omitempty"`
	Phone               string     `bun:"phone" json:"phone,omitempty"`
	Bio                 string     `bun:"bio" json:"bio,omitempty"`
	Batch               string     `bun:"batch" json:"batch,omitempty"`
	Semester            int        `bun:"semester" json:"semester,omitempty"`
	Section             string     `bun:"section" json:"section,omitempty"`
	LinkedIn            string     `bun:"linked_in" json:"linkedIn,omitempty"`
	GitHub              string     `bun:"github" json:"github,omitempty"`
	PortfolioURL        string     `bun:"portfolio_url" json:"portfolio,omitempty"`
	IsActive            bool       `bun:"is_active,notnull" json:"isActive"`
	ResetTokenHash      string     `bun:"reset_token_hash" json:"-"`
	ResetTokenExpiresAt *time.Time `bun:"reset_token_expires_at" json:"-"`
	LastLoginAt         *time.Time `bun:"last_login_at" json:"lastLogin,omitempty"`
	CreatedAt           time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt           time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Public is the projection of a user that is safe to hand to any caller.
type Public struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          Role       `json:"role"`
	Department    Department `json:"department"`
	StudentNumber string     `json:"studentId,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Bio           string     `json:"bio,omitempty"`
	Batch         string     `json:"batch,omitempty"`
	Semester      int        `json:"semester,omitempty"`
	Section       string     `json:"section,omitempty"`
	LinkedIn      string     `json:"linkedIn,omitempty"`
	GitHub        string     `json:"github,omitempty"`
	PortfolioURL  string     `json:"portfolio,omitempty"`
	IsActive      bool       `json:"isActive"`
	LastLoginAt   *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (u *User) Public() Public {
	return Public{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		Department:    u.Department,
		StudentNumber: u.StudentNumber,
		Phone:         u.Phone,
		Bio:           u.Bio,
		Batch:         u.Batch,
		Semester:      u.Semester,
		Section:       u.Section,
		LinkedIn:      u.LinkedIn,
		GitHub:        u.GitHub,
		PortfolioURL:  u.PortfolioURL,
		IsActive:      u.IsActive,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}

// NormalizeEmail lower-cases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StudentFilter narrows the admin student listing.
type StudentFilter struct {
	Department Department
	Batch      string
	Semester   int
	Search     string
	Page       int
	Limit      int
}
