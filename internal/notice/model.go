package notice

import (
	"time"

	"achievement-service/internal/apperr"
	"achievement-service/internal/user"

	"github.com/uptrace/bun"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

var (
	ErrNotFound = apperr.New(apperr.ErrNotFound, "notice not found")
	ErrNotOwner = apperr.New(apperr.ErrForbidden, "not authorized to manage this notice")
)

type Notice struct {
	bun.BaseModel `bun:"table:notices,alias:n"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Title     string    `bun:"title,notnull" json:"title"`
	Content   string    `bun:"content,notnull" json:"content"`
	Priority  Priority  `bun:"priority,notnull" json:"priority"`
	CreatedBy int64     `bun:"created_by,notnull" json:"createdBy"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`

	Author *user.User `bun:"rel:belongs-to,join:created_by=id" json:"-"`
}

// View attaches the public author profile.
type View struct {
	*Notice
	Author *user.Public `json:"author,omitempty"`
}

func (n *Notice) View() View {
	v := View{Notice: n}
	if n.Author != nil {
		pub := n.Author.Public()
		v.Author = &pub
	}
	return v
}

type CreateRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required,max=5000"`
	Priority string `json:"priority" validate:"omitempty,oneof=Low Normal High Urgent"`
}
