package verification

import (
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/apperr"

	"github.com/uptrace/bun"
)

type Action string

const (
	ActionApproved      Action = "approved"
	ActionRejected      Action = "rejected"
	ActionRequestedInfo Action = "requested_info"
)

var (
	ErrNotPending = apperr.New(apperr.ErrConflict, "achievement is not pending verification")
	ErrStaffOnly  = apperr.New(apperr.ErrForbidden, "only faculty or admins can verify achievements")
)

// Record is one entry of the append-only review log.
type Record struct {
	bun.BaseModel `bun:"table:verifications,alias:v"`

	ID             int64              `bun:"id,pk,autoincrement" json:"id"`
	AchievementID  int64              `bun:"achievement_id,notnull" json:"achievementId"`
	VerifiedBy     int64              `bun:"verified_by,notnull" json:"verifiedBy"`
	Action         Action             `bun:"action,notnull" json:"action"`
	Remarks        string             `bun:"remarks,notnull" json:"remarks"`
	PreviousStatus achievement.Status `bun:"previous_status,notnull" json:"previousStatus"`
	NewStatus      achievement.Status `bun:"new_status,notnull" json:"newStatus"`
	CreatedAt      time.Time          `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

type VerifyRequest struct {
	Action  string `json:"action" validate:"required,oneof=approved rejected"`
	Remarks string `json:"remarks" validate:"max=500"`
}

// Result is the outcome of a verify call.
type Result struct {
	Achievement *achievement.Achievement `json:"achievement"`
	Record      *Record                  `json:"verification"`
}
