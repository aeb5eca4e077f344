package notice

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"achievement-service/internal/metrics"
	"achievement-service/internal/notification"
	"achievement-service/internal/policy"
	"achievement-service/internal/validate"

	"github.com/go-playground/validator/v10"
)

// RecipientLister returns the addresses a published notice goes to.
type RecipientLister interface {
	ActiveStudentEmails(ctx context.Context) ([]string, error)
}

type Service struct {
	repo         Repository
	recipients   RecipientLister
	mail         notification.Queue
	queryTimeout time.Duration
	validate     *validator.Validate
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(repo Repository, recipients RecipientLister, mail notification.Queue, queryTimeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Service {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Service{
		repo:         repo,
		recipients:   recipients,
		mail:         mail,
		queryTimeout: queryTimeout,
		validate:     validate.New(),
		logger:       logger,
		metrics:      m,
		now:          time.Now,
	}
}

// Create stores a notice and queues one email to every active student.
// Delivery happens in the background.
func (s *Service) Create(ctx context.Context, actor policy.Actor, req CreateRequest) (*Notice, error) {
	if !policy.CanPublishNotice(actor) {
		return nil, ErrNotOwner
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if err := validate.Struct(s.validate, req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	priority := Priority(req.Priority)
	if priority == "" {
		priority = PriorityNormal
	}
	n := &Notice{
		Title:     req.Title,
		Content:   req.Content,
		Priority:  priority,
		CreatedBy: actor.UserID,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "notice published", "notice_id", n.ID, "priority", n.Priority, "author_id", actor.UserID)
	s.fanOut(ctx, n)

	return n, nil
}

func (s *Service) List(ctx context.Context) ([]Notice, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	notices, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if notices == nil {
		notices = []Notice{}
	}
	return notices, nil
}

// Delete is allowed for admins and for the staff member who wrote the notice.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if !policy.CanPublishNotice(actor) {
		return ErrNotOwner
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && n.CreatedBy != actor.UserID {
		return ErrNotOwner
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "notice deleted", "notice_id", id, "actor_id", actor.UserID)
	return nil
}

func (s *Service) fanOut(ctx context.Context, n *Notice) {
	if s.mail == nil || s.recipients == nil {
		return
	}
	emails, err := s.recipients.ActiveStudentEmails(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "notice email skipped, recipient lookup failed", "notice_id", n.ID, "error", err)
		return
	}
	if len(emails) == 0 {
		return
	}
	msg := notification.NoticePublished(emails, n.Title, n.Content, string(n.Priority))
	if !s.mail.Enqueue(msg) {
		s.logger.WarnContext(ctx, "notice email not queued", "notice_id", n.ID, "recipients", len(emails))
	}
}
