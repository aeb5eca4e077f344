package achievement

import (
	"encoding/json"
	"strings"
	"time"

	"achievement-service/internal/apperr"
	"achievement-service/internal/user"

	"github.com/uptrace/bun"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Categories and Levels are the closed sets accepted on submission.
var (
	Categories = []string{
		"Academic", "Sports", "Cultural", "Technical", "Research",
		"Internship", "Certification", "Competition", "Community Service", "Other",
	}
	Levels = []string{"International", "National", "State", "University", "College", "Department"}
)

var (
	ErrNotFound       = apperr.New(apperr.ErrNotFound, "achievement not found")
	ErrNotOwner       = apperr.New(apperr.ErrForbidden, "not authorized to access this achievement")
	ErrApprovedLocked = apperr.New(apperr.ErrConflict, "cannot edit an approved achievement")
	ErrStudentsOnly   = apperr.New(apperr.ErrForbidden, "only students can submit achievements")
	ErrStaffOnly      = apperr.New(apperr.ErrForbidden, "staff access required")
)

// ProofFile describes one stored proof document.
type ProofFile struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	URL          string    `json:"url"`
	ContentType  string    `json:"contentType,omitempty"`
	Size         int64     `json:"size,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type Achievement struct {
	bun.BaseModel `bun:"table:achievements,alias:a"`

	ID          int64       `bun:"id,pk,autoincrement" json:"id"`
	StudentID   int64       `bun:"student_id,notnull" json:"studentId"`
	Title       string      `bun:"title,notnull" json:"title"`
	Category    string      `bun:"category,notnull" json:"category"`
	Description string      `bun:"description,notnull" json:"description"`
	Level       string      `bun:"level,notnull" json:"level"`
	AchievedOn  time.Time   `bun:"achieved_on,type:date,notnull" json:"date"`
	Institution string      `bun:"institution" json:"institution,omitempty"`
	ProofFiles  []ProofFile `bun:"proof_files,type:jsonb,notnull" json:"proofFiles"`
	Status      Status      `bun:"status,notnull" json:"status"`
	Remarks     string      `bun:"remarks" json:"remarks,omitempty"`
	VerifiedBy  *int64      `bun:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt  *time.Time  `bun:"verified_at" json:"verifiedAt,omitempty"`
	IsPublic    bool        `bun:"is_public,notnull" json:"isPublic"`
	Tags        []string    `bun:"tags,array" json:"tags"`
	Points      int         `bun:"points,notnull" json:"points"`
	CreatedAt   time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time   `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	Student *user.User `bun:"rel:belongs-to,join:student_id=id" json:"-"`
}

// View is the API shape of an achievement. Owner details are attached only on
// staff listings.
type View struct {
	*Achievement
	Student *user.Public `json:"student,omitempty"`
}

func (a *Achievement) View() View {
	v := View{Achievement: a}
	if a.Student != nil {
		pub := a.Student.Public()
		v.Student = &pub
	}
	return v
}

// TagList accepts either a JSON array or a comma-separated string.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = normalizeTags(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return apperr.Validation("tags: must be a list or a comma-separated string")
	}
	*t = ParseTags(s)
	return nil
}

// ParseTags splits a comma-separated tag string, dropping blanks.
func ParseTags(s string) TagList {
	return normalizeTags(strings.Split(s, ","))
}

func normalizeTags(in []string) TagList {
	out := make(TagList, 0, len(in))
	for _, tag := range in {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

type CreateRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Category    string  `json:"category" validate:"required,oneof=Academic Sports Cultural Technical Research Internship Certification Competition 'Community Service' Other"`
	Description string  `json:"description" validate:"required,max=2000"`
	Level       string  `json:"level" validate:"required,oneof=International National State University College Department"`
	Date        string  `json:"date" validate:"required"`
	Institution string  `json:"institution" validate:"max=200"`
	Tags        TagList `json:"tags" validate:"max=20,dive,max=50"`
	IsPublic    *bool   `json:"isPublic"`
}

// UpdateRequest carries the owner-editable fields. Nil means unchanged.
type UpdateRequest struct {
	Title       *string  `json:"title" validate:"omitnil,min=1,max=200"`
	Category    *string  `json:"category" validate:"omitnil,oneof=Academic Sports Cultural Technical Research Internship Certification Competition 'Community Service' Other"`
	Description *string  `json:"description" validate:"omitnil,min=1,max=2000"`
	Level       *string  `json:"level" validate:"omitnil,oneof=International National State University College Department"`
	Date        *string  `json:"date" validate:"omitnil,min=1"`
	Institution *string  `json:"institution" validate:"omitnil,max=200"`
	Tags        *TagList `json:"tags" validate:"omitnil,max=20,dive,max=50"`
	IsPublic    *bool    `json:"isPublic"`
}

// trimmed strips surrounding whitespace from free-text fields so that
// validation sees what will be stored.
func (r CreateRequest) trimmed() CreateRequest {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Institution = strings.TrimSpace(r.Institution)
	r.Date = strings.TrimSpace(r.Date)
	return r
}

func (r UpdateRequest) trimmed() UpdateRequest {
	r.Title = trimPtr(r.Title)
	r.Description = trimPtr(r.Description)
	r.Institution = trimPtr(r.Institution)
	r.Date = trimPtr(r.Date)
	return r
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(24 * time.Hour), nil
	}
	return time.Time{}, apperr.Validation("date: must be YYYY-MM-DD")
}

type ListFilter struct {
	Status   Status `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	Category string `json:"category" validate:"omitempty,oneof=Academic Sports Cultural Technical Research Internship Certification Competition 'Community Service' Other"`
	Level    string `json:"level" validate:"omitempty,oneof=International National State University College Department"`
	Search   string `json:"search"`
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
}

// AdminFilter narrows the staff listing across all students.
type AdminFilter struct {
	Status     Status          `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	Category   string          `json:"category" validate:"omitempty,oneof=Academic Sports Cultural Technical Research Internship Certification Competition 'Community Service' Other"`
	Department user.Department `json:"department" validate:"omitempty,oneof=CSE IT ECE EEE ME CE Other"`
	Search     string          `json:"search"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
}
