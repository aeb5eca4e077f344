package event

import (
	"strings"
	"time"

	"achievement-service/internal/apperr"
	"achievement-service/internal/user"

	"github.com/uptrace/bun"
)

// Categories accepted for campus events.
var Categories = []string{"Technical", "Cultural", "Sports", "Workshop", "Seminar", "Other"}

var (
	ErrNotFound = apperr.New(apperr.ErrNotFound, "event not found")
	ErrNotOwner = apperr.New(apperr.ErrForbidden, "not authorized to manage this event")
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID               int64     `bun:"id,pk,autoincrement" json:"id"`
	Title            string    `bun:"title,notnull" json:"title"`
	Description      string    `bun:"description,notnull" json:"description"`
	Category         string    `bun:"category,notnull" json:"category"`
	StartsAt         time.Time `bun:"starts_at,notnull" json:"date"`
	Venue            string    `bun:"venue,notnull" json:"venue"`
	RegistrationLink string    `bun:"registration_link" json:"registrationLink,omitempty"`
	CreatedBy        int64     `bun:"created_by,notnull" json:"createdBy"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	Author *user.User `bun:"rel:belongs-to,join:created_by=id" json:"-"`
}

// View attaches the public organiser profile.
type View struct {
	*Event
	Author *user.Public `json:"author,omitempty"`
}

func (e *Event) View() View {
	v := View{Event: e}
	if e.Author != nil {
		pub := e.Author.Public()
		v.Author = &pub
	}
	return v
}

type CreateRequest struct {
	Title            string `json:"title" validate:"required,max=200"`
	Description      string `json:"description" validate:"required,max=5000"`
	Category         string `json:"category" validate:"required,oneof=Technical Cultural Sports Workshop Seminar Other"`
	Date             string `json:"date" validate:"required"`
	Venue            string `json:"venue" validate:"required,max=200"`
	RegistrationLink string `json:"registrationLink" validate:"omitempty,url,max=500"`
}

func (r CreateRequest) trimmed() CreateRequest {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Date = strings.TrimSpace(r.Date)
	r.Venue = strings.TrimSpace(r.Venue)
	r.RegistrationLink = strings.TrimSpace(r.RegistrationLink)
	return r
}

// UpdateRequest changes only the fields that are present.
type UpdateRequest struct {
	Title            *string `json:"title" validate:"omitnil,min=1,max=200"`
	Description      *string `json:"description" validate:"omitnil,min=1,max=5000"`
	Category         *string `json:"category" validate:"omitnil,oneof=Technical Cultural Sports Workshop Seminar Other"`
	Date             *string `json:"date" validate:"omitnil,min=1"`
	Venue            *string `json:"venue" validate:"omitnil,min=1,max=200"`
	RegistrationLink *string `json:"registrationLink" validate:"omitempty,url,max=500"`
}

func (r UpdateRequest) trimmed() UpdateRequest {
	for _, p := range []**string{&r.Title, &r.Description, &r.Date, &r.Venue, &r.RegistrationLink} {
		if *p != nil {
			v := strings.TrimSpace(**p)
			*p = &v
		}
	}
	return r
}

// ListFilter narrows the event list. "All" is the same as no category.
type ListFilter struct {
	Category string `json:"category" validate:"omitempty,oneof=All Technical Cultural Sports Workshop Seminar Other"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// ParseDate accepts an RFC 3339 timestamp, a datetime-local value or a
// calendar date. Values without a zone are read as UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validation("date: must be YYYY-MM-DD or an RFC 3339 timestamp")
}
