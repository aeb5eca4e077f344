package event

import (
	"context"
	"log/slog"
	"time"

	"achievement-service/internal/notification"
	"achievement-service/internal/policy"
	"achievement-service/internal/validate"

	"github.com/go-playground/validator/v10"
)

// RecipientLister returns the addresses a new event is announced to.
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
	now          func() time.Time
}

func NewService(repo Repository, recipients RecipientLister, mail notification.Queue, queryTimeout time.Duration, logger *slog.Logger) *Service {
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
		now:          time.Now,
	}
}

// Create schedules an event and announces it to every active student.
func (s *Service) Create(ctx context.Context, actor policy.Actor, req CreateRequest) (*Event, error) {
	if !policy.CanManageEvents(actor) {
		return nil, ErrNotOwner
	}
	req = req.trimmed()
	if err := validate.Struct(s.validate, req); err != nil {
		return nil, err
	}
	startsAt, err := ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	now := s.now()
	e := &Event{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		StartsAt:         startsAt,
		Venue:            req.Venue,
		RegistrationLink: req.RegistrationLink,
		CreatedBy:        actor.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "event created", "event_id", e.ID, "category", e.Category, "author_id", actor.UserID)
	s.announce(ctx, e)

	return e, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Event, error) {
	if err := validate.Struct(s.validate, filter); err != nil {
		return nil, err
	}
	category := filter.Category
	if category == "All" {
		category = ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	out, err := s.repo.List(ctx, category)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Event{}
	}
	return out, nil
}

// Update edits an event. Admins may edit any event, faculty only their own.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id int64, req UpdateRequest) (*Event, error) {
	if !policy.CanManageEvents(actor) {
		return nil, ErrNotOwner
	}
	req = req.trimmed()
	if err := validate.Struct(s.validate, req); err != nil {
		return nil, err
	}
	var startsAt time.Time
	if req.Date != nil {
		d, err := ParseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		startsAt = d
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	e, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Category != nil {
		e.Category = *req.Category
	}
	if req.Date != nil {
		e.StartsAt = startsAt
	}
	if req.Venue != nil {
		e.Venue = *req.Venue
	}
	if req.RegistrationLink != nil {
		e.RegistrationLink = *req.RegistrationLink
	}
	e.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "event updated", "event_id", e.ID, "actor_id", actor.UserID)
	return e, nil
}

// Delete removes an event. Admins may delete any event, faculty only their own.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if !policy.CanManageEvents(actor) {
		return ErrNotOwner
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "event deleted", "event_id", id, "actor_id", actor.UserID)
	return nil
}

func (s *Service) owned(ctx context.Context, actor policy.Actor, id int64) (*Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && e.CreatedBy != actor.UserID {
		return nil, ErrNotOwner
	}
	return e, nil
}

func (s *Service) announce(ctx context.Context, e *Event) {
	if s.mail == nil || s.recipients == nil {
		return
	}
	emails, err := s.recipients.ActiveStudentEmails(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "event email skipped, recipient lookup failed", "event_id", e.ID, "error", err)
		return
	}
	if len(emails) == 0 {
		return
	}
	msg := notification.EventAnnounced(emails, e.Title, e.Category, e.Venue, e.StartsAt, e.RegistrationLink)
	if !s.mail.Enqueue(msg) {
		s.logger.WarnContext(ctx, "event email not queued", "event_id", e.ID, "recipients", len(emails))
	}
}
