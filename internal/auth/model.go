package auth

import (
	"time"

	"achievement-service/internal/apperr"
	"achievement-service/internal/user"

	"github.com/uptrace/bun"
)

var (
	ErrEmailExists         = user.ErrEmailExists
	ErrInvalidCredentials  = apperr.New(apperr.ErrUnauthenticated, "invalid email or password")
	ErrInvalidRefreshToken = apperr.New(apperr.ErrUnauthenticated, "invalid or expired refresh token")
	ErrInvalidToken        = apperr.New(apperr.ErrUnauthenticated, "invalid or expired token")
	ErrAccountDisabled     = apperr.New(apperr.ErrForbidden, "account is deactivated")
	ErrWrongPassword       = apperr.New(apperr.ErrValidation, "current password is incorrect")
	ErrInvalidResetToken   = apperr.New(apperr.ErrValidation, "invalid or expired reset token")
)

// RefreshToken stores the SHA-256 of an issued refresh token.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	TokenHash string    `bun:"token_hash,notnull,unique"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type RegisterRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	Department    string `json:"department" validate:"required,oneof=CSE IT ECE EEE ME CE Other"`
	StudentNumber string `json:"studentId" validate:"max=50"`
	Phone         string `json:"phone" validate:"max=20"`
	Batch         string `json:"batch" validate:"max=20"`
	Semester      int    `json:"semester" validate:"omitempty,min=1,max=8"`
	Section       string `json:"section" validate:"max=10"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	User         user.Public `json:"user"`
}

// UpdateProfileRequest lists the only fields a user may change on their own
// profile. Nil fields are left untouched.
type UpdateProfileRequest struct {
	Name         *string `json:"name" validate:"omitnil,min=1,max=100"`
	Phone        *string `json:"phone" validate:"omitempty,max=20"`
	Bio          *string `json:"bio" validate:"omitempty,max=500"`
	Batch        *string `json:"batch" validate:"omitempty,max=20"`
	Semester     *int    `json:"semester" validate:"omitempty,min=1,max=8"`
	Section      *string `json:"section" validate:"omitempty,max=10"`
	LinkedIn     *string `json:"linkedIn" validate:"omitempty,max=200"`
	GitHub       *string `json:"github" validate:"omitempty,max=200"`
	PortfolioURL *string `json:"portfolio" validate:"omitempty,max=200"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}
