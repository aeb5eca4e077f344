package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"achievement-service/internal/apperr"
	"achievement-service/internal/metrics"
	"achievement-service/internal/notification"
	"achievement-service/internal/policy"
	"achievement-service/internal/user"
	"achievement-service/internal/validate"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	resetTokenBytes   = 20
	resetTokenTTL     = 10 * time.Minute
	refreshTokenBytes = 32
)

type Config struct {
	RefreshTTL   time.Duration
	QueryTimeout time.Duration
	// ResetURL is the front-end page that receives the reset token as its
	// last path segment.
	ResetURL   string
	BcryptCost int
}

type Service struct {
	tokens   TokenStore
	users    user.Repository
	issuer   *TokenIssuer
	mail     notification.Queue
	cfg      Config
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(tokens TokenStore, users user.Repository, issuer *TokenIssuer, mail notification.Queue, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Service {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 5 * time.Second
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		tokens:   tokens,
		users:    users,
		issuer:   issuer,
		mail:     mail,
		cfg:      cfg,
		validate: validate.New(),
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(s.validate, req); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	email := user.NormalizeEmail(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &user.User{
		Name:          strings.TrimSpace(req.Name),
		Email:         email,
		PasswordHash:  string(hash),
		Role:          user.RoleStudent,
		Department:    user.Department(req.Department),
		StudentNumber: strings.TrimSpace(req.StudentNumber),
		Phone:         req.Phone,
		Batch:         req.Batch,
		Semester:      req.Semester,
		Section:       req.Section,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.metrics.Achievements.RecordRegistration(ctx)
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID, "department", u.Department)

	return s.issuePair(ctx, u)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validate.Struct(s.validate, req); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	now := s.now()
	u.LastLoginAt = &now
	if err := s.users.Update(ctx, u, "last_login_at"); err != nil {
		return nil, err
	}

	return s.issuePair(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	hash := hashToken(refreshToken)
	stored, err := s.tokens.GetRefreshToken(ctx, hash)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.DeleteRefreshToken(ctx, hash); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	return s.issuePair(ctx, u)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	return s.tokens.DeleteRefreshToken(ctx, hashToken(refreshToken))
}

// Authenticate resolves an access token to the current state of its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (policy.Actor, error) {
	claims, err := s.issuer.Parse(accessToken)
	if err != nil {
		return policy.Actor{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return policy.Actor{}, ErrInvalidToken
		}
		return policy.Actor{}, err
	}
	if !u.IsActive {
		return policy.Actor{}, ErrAccountDisabled
	}
	return ActorFor(u), nil
}

func (s *Service) Profile(ctx context.Context, actor policy.Actor) (*user.Public, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	pub := u.Public()
	return &pub, nil
}

func (s *Service) UpdateProfile(ctx context.Context, actor policy.Actor, req UpdateProfileRequest) (*user.Public, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := validate.Struct(s.validate, req); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	var columns []string
	set := func(dst *string, src *string, column string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
			columns = append(columns, column)
		}
	}
	set(&u.Name, req.Name, "name")
	set(&u.Phone, req.Phone, "phone")
	set(&u.Bio, req.Bio, "bio")
	set(&u.Batch, req.Batch, "batch")
	set(&u.Section, req.Section, "section")
	set(&u.LinkedIn, req.LinkedIn, "linked_in")
	set(&u.GitHub, req.GitHub, "github")
	set(&u.PortfolioURL, req.PortfolioURL, "portfolio_url")
	if req.Semester != nil {
		u.Semester = *req.Semester
		columns = append(columns, "semester")
	}

	if len(columns) > 0 {
		if err := s.users.Update(ctx, u, columns...); err != nil {
			return nil, err
		}
	}
	pub := u.Public()
	return &pub, nil
}

// ChangePassword verifies the current password, stores the new one and
// revokes every refresh token of the user.
func (s *Service) ChangePassword(ctx context.Context, actor policy.Actor, req ChangePasswordRequest) error {
	if err := validate.Struct(s.validate, req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return ErrWrongPassword
	}
	if err := s.setPassword(ctx, u, req.NewPassword); err != nil {
		return err
	}
	return s.tokens.DeleteAllUserTokens(ctx, u.ID)
}

// ForgotPassword emails a one-time reset link. It succeeds for unknown
// addresses too so callers cannot tell which accounts exist.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if err := validate.Struct(s.validate, req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !u.IsActive {
		return nil
	}

	token, err := randomToken(resetTokenBytes)
	if err != nil {
		return err
	}
	expires := s.now().Add(resetTokenTTL)
	u.ResetTokenHash = hashToken(token)
	u.ResetTokenExpiresAt = &expires
	if err := s.users.Update(ctx, u, "reset_token_hash", "reset_token_expires_at"); err != nil {
		return err
	}

	resetURL := strings.TrimRight(s.cfg.ResetURL, "/") + "/" + token
	if !s.mail.Enqueue(notification.PasswordReset(u.Email, u.Name, resetURL)) {
		s.logger.WarnContext(ctx, "password reset email not queued", "user_id", u.ID)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token string, req ResetPasswordRequest) error {
	if err := validate.Struct(s.validate, req); err != nil {
		return err
	}
	if token == "" {
		return ErrInvalidResetToken
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	u, err := s.users.GetByResetTokenHash(ctx, hashToken(token), s.now())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = nil
	if err := s.setPassword(ctx, u, req.Password, "reset_token_hash", "reset_token_expires_at"); err != nil {
		return err
	}
	return s.tokens.DeleteAllUserTokens(ctx, u.ID)
}

// SetActive activates or deactivates an account. Users are never deleted.
func (s *Service) SetActive(ctx context.Context, actor policy.Actor, id int64, req SetActiveRequest) (*user.Public, error) {
	if !policy.CanManageUsers(actor) {
		return nil, apperr.New(apperr.ErrForbidden, "only admins can manage users")
	}
	if err := validate.Struct(s.validate, req); err != nil {
		return nil, err
	}
	if id == actor.UserID && !*req.IsActive {
		return nil, apperr.Validation("you cannot deactivate your own account")
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = *req.IsActive
	if err := s.users.Update(ctx, u, "is_active"); err != nil {
		return nil, err
	}
	if !u.IsActive {
		if err := s.tokens.DeleteAllUserTokens(ctx, u.ID); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "user status changed", "user_id", u.ID, "active", u.IsActive, "by", actor.UserID)
	pub := u.Public()
	return &pub, nil
}

func (s *Service) PurgeExpiredTokens(ctx context.Context) error {
	return s.tokens.DeleteExpiredTokens(ctx)
}

func (s *Service) setPassword(ctx context.Context, u *user.User, password string, extraColumns ...string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return s.users.Update(ctx, u, append([]string{"password_hash"}, extraColumns...)...)
}

func (s *Service) issuePair(ctx context.Context, u *user.User) (*AuthResponse, error) {
	now := s.now()
	access, expiresAt, err := s.issuer.Issue(u, now)
	if err != nil {
		return nil, err
	}

	refresh, err := randomToken(refreshTokenBytes)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.CreateRefreshToken(ctx, u.ID, hashToken(refresh), now.Add(s.cfg.RefreshTTL)); err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         u.Public(),
	}, nil
}

// ActorFor builds the capability subject for u.
func ActorFor(u *user.User) policy.Actor {
	return policy.Actor{
		UserID:     u.ID,
		Role:       u.Role,
		Department: u.Department,
		Email:      u.Email,
		Active:     u.IsActive,
	}
}
