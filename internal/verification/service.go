package verification

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/events"
	"achievement-service/internal/metrics"
	"achievement-service/internal/notification"
	"achievement-service/internal/policy"
	"achievement-service/internal/user"
	"achievement-service/internal/validate"

	"github.com/go-playground/validator/v10"
)

// AchievementReader is the slice of the achievement store the workflow reads.
type AchievementReader interface {
	GetByID(ctx context.Context, id int64) (*achievement.Achievement, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

type Service struct {
	repo         Repository
	achievements AchievementReader
	users        UserReader
	mail         notification.Queue
	events       achievement.EventPublisher
	cache        achievement.CacheInvalidator
	queryTimeout time.Duration
	validate     *validator.Validate
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(repo Repository, achievements AchievementReader, users UserReader, mail notification.Queue, publisher achievement.EventPublisher, cache achievement.CacheInvalidator, queryTimeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Service {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Service{
		repo:         repo,
		achievements: achievements,
		users:        users,
		mail:         mail,
		events:       publisher,
		cache:        cache,
		queryTimeout: queryTimeout,
		validate:     validate.New(),
		logger:       logger,
		metrics:      m,
		now:          time.Now,
	}
}

// Verify approves or rejects a pending achievement. Checks run in order:
// capability, input, existence, then state.
func (s *Service) Verify(ctx context.Context, actor policy.Actor, achievementID int64, req VerifyRequest) (*Result, error) {
	if !policy.CanVerify(actor) {
		return nil, ErrStaffOnly
	}
	req.Action = strings.TrimSpace(req.Action)
	if err := validate.Struct(s.validate, req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	action := Action(req.Action)
	rec := &Record{
		AchievementID: achievementID,
		VerifiedBy:    actor.UserID,
		Action:        action,
		Remarks:       req.Remarks,
		NewStatus:     achievement.Status(action),
		CreatedAt:     s.now(),
	}
	a, err := s.repo.Apply(ctx, rec)
	if err != nil {
		return nil, err
	}

	s.metrics.Achievements.RecordVerified(ctx, string(action))
	s.logger.InfoContext(ctx, "achievement verified",
		"achievement_id", a.ID,
		"verifier_id", actor.UserID,
		"previous_status", rec.PreviousStatus,
		"new_status", rec.NewStatus,
	)

	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	if s.events != nil {
		s.events.Publish(ctx, events.AchievementEvent{
			Type:          events.TypeVerified,
			AchievementID: a.ID,
			StudentID:     a.StudentID,
			Status:        string(a.Status),
			Points:        a.Points,
			ActorID:       actor.UserID,
			At:            rec.CreatedAt.UTC(),
		})
	}
	s.notifyOwner(ctx, a)

	return &Result{Achievement: a, Record: rec}, nil
}

// History lists the review log of an achievement, oldest first.
func (s *Service) History(ctx context.Context, actor policy.Actor, achievementID int64) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	a, err := s.achievements.GetByID(ctx, achievementID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewAchievement(actor, a.StudentID) {
		return nil, achievement.ErrNotOwner
	}
	return s.repo.ListByAchievement(ctx, achievementID)
}

func (s *Service) notifyOwner(ctx context.Context, a *achievement.Achievement) {
	if s.mail == nil || s.users == nil {
		return
	}
	owner, err := s.users.GetByID(ctx, a.StudentID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping verification email, owner lookup failed",
			"achievement_id", a.ID,
			"error", err,
		)
		return
	}
	msg := notification.VerificationResult(owner.Email, owner.Name, a.Title, string(a.Status), a.Remarks)
	if !s.mail.Enqueue(msg) {
		s.logger.WarnContext(ctx, "verification email not queued", "achievement_id", a.ID)
	}
}
