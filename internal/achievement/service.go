package achievement

import (
	"context"
	"log/slog"
	"mime/multipart"
	"time"

	"achievement-service/internal/events"
	"achievement-service/internal/metrics"
	"achievement-service/internal/paging"
	"achievement-service/internal/policy"
	"achievement-service/internal/scoring"
	"achievement-service/internal/validate"

	"github.com/go-playground/validator/v10"
)

const recentLimit = 5

// ProofStore persists uploaded proof documents.
type ProofStore interface {
	Validate(files []*multipart.FileHeader) error
	Save(ctx context.Context, fh *multipart.FileHeader) (ProofFile, error)
	Remove(ctx context.Context, filename string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.AchievementEvent)
}

// CacheInvalidator drops cached aggregates after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

type Service struct {
	repo         Repository
	proofs       ProofStore
	events       EventPublisher
	cache        CacheInvalidator
	queryTimeout time.Duration
	validate     *validator.Validate
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(repo Repository, proofs ProofStore, publisher EventPublisher, cache CacheInvalidator, queryTimeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Service {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Service{
		repo:         repo,
		proofs:       proofs,
		events:       publisher,
		cache:        cache,
		queryTimeout: queryTimeout,
		validate:     validate.New(),
		logger:       logger,
		metrics:      m,
		now:          time.Now,
	}
}

func (s *Service) Create(ctx context.Context, actor policy.Actor, req CreateRequest, files []*multipart.FileHeader) (*Achievement, error) {
	if !policy.CanSubmit(actor) {
		return nil, ErrStudentsOnly
	}
	req = req.trimmed()
	if err := validate.Struct(s.validate, req); err != nil {
		return nil, err
	}
	date, err := ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.validateFiles(files); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	proofs, err := s.saveFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	tags := []string(req.Tags)
	if tags == nil {
		tags = []string{}
	}

	now := s.now()
	a := &Achievement{
		StudentID:   actor.UserID,
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Level:       req.Level,
		AchievedOn:  date,
		Institution: req.Institution,
		ProofFiles:  proofs,
		Status:      StatusPending,
		IsPublic:    isPublic,
		Tags:        tags,
		Points:      scoring.Points(req.Level),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		s.removeFiles(ctx, proofs)
		return nil, err
	}

	s.metrics.Achievements.RecordSubmitted(ctx, a.Category)
	s.logger.InfoContext(ctx, "achievement submitted",
		"achievement_id", a.ID,
		"student_id", a.StudentID,
		"level", a.Level,
		"points", a.Points,
	)
	s.afterWrite(ctx, events.TypeSubmitted, a, actor)

	return a, nil
}

func (s *Service) Get(ctx context.Context, actor policy.Actor, id int64) (*Achievement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewAchievement(actor, a.StudentID) {
		return nil, ErrNotOwner
	}
	return a, nil
}

// ListMine pages through the caller's own achievements, newest first.
func (s *Service) ListMine(ctx context.Context, actor policy.Actor, filter ListFilter) (paging.Result[Achievement], error) {
	if err := validate.Struct(s.validate, filter); err != nil {
		return paging.Result[Achievement]{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	p := paging.Params{Page: filter.Page, Limit: filter.Limit}.Normalize()
	filter.Page, filter.Limit = p.Page, p.Limit

	items, total, err := s.repo.ListByStudent(ctx, actor.UserID, filter)
	if err != nil {
		return paging.Result[Achievement]{}, err
	}
	return paging.NewResult(items, total, p), nil
}

// ListAll is the staff listing across every student.
func (s *Service) ListAll(ctx context.Context, actor policy.Actor, filter AdminFilter) (paging.Result[Achievement], error) {
	if !policy.CanVerify(actor) {
		return paging.Result[Achievement]{}, ErrStaffOnly
	}
	if err := validate.Struct(s.validate, filter); err != nil {
		return paging.Result[Achievement]{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	p := paging.Params{Page: filter.Page, Limit: filter.Limit}.Normalize()
	filter.Page, filter.Limit = p.Page, p.Limit

	items, total, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return paging.Result[Achievement]{}, err
	}
	return paging.NewResult(items, total, p), nil
}

func (s *Service) ListPending(ctx context.Context, actor policy.Actor, filter AdminFilter) (paging.Result[Achievement], error) {
	filter.Status = StatusPending
	return s.ListAll(ctx, actor, filter)
}

// Recent returns the latest submissions of a student regardless of status.
func (s *Service) Recent(ctx context.Context, studentID int64) ([]Achievement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	items, err := s.repo.RecentByStudent(ctx, studentID, recentLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Achievement{}
	}
	return items, nil
}

// Update applies an owner edit. Any edit sends the achievement back to
// pending review, and new proof files are appended to the existing ones.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id int64, req UpdateRequest, files []*multipart.FileHeader) (*Achievement, error) {
	req = req.trimmed()
	if err := validate.Struct(s.validate, req); err != nil {
		return nil, err
	}
	var date time.Time
	if req.Date != nil {
		d, err := ParseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		date = d
	}
	if err := s.validateFiles(files); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanEditAchievement(actor, a.StudentID) {
		return nil, ErrNotOwner
	}
	if a.Status == StatusApproved {
		return nil, ErrApprovedLocked
	}

	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Category != nil {
		a.Category = *req.Category
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Level != nil {
		a.Level = *req.Level
	}
	if req.Date != nil {
		a.AchievedOn = date
	}
	if req.Institution != nil {
		a.Institution = *req.Institution
	}
	if req.Tags != nil {
		a.Tags = []string(*req.Tags)
	}
	if req.IsPublic != nil {
		a.IsPublic = *req.IsPublic
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}

	added, err := s.saveFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	a.ProofFiles = append(a.ProofFiles, added...)
	if a.ProofFiles == nil {
		a.ProofFiles = []ProofFile{}
	}

	a.Status = StatusPending
	a.Points = scoring.Points(a.Level)
	a.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, a); err != nil {
		s.removeFiles(ctx, added)
		return nil, err
	}

	s.logger.InfoContext(ctx, "achievement updated", "achievement_id", a.ID, "student_id", a.StudentID)
	s.afterWrite(ctx, events.TypeUpdated, a, actor)

	return a, nil
}

// Delete removes an achievement. Owners may delete until it is approved;
// admins may delete at any time.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteAchievement(actor, a.StudentID) {
		return ErrNotOwner
	}
	if !actor.IsAdmin() && a.Status == StatusApproved {
		return ErrNotOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeFiles(ctx, a.ProofFiles)

	s.metrics.Achievements.RecordDeleted(ctx)
	s.logger.InfoContext(ctx, "achievement deleted", "achievement_id", a.ID, "actor_id", actor.UserID)
	s.afterWrite(ctx, events.TypeDeleted, a, actor)

	return nil
}

func (s *Service) validateFiles(files []*multipart.FileHeader) error {
	if len(files) == 0 || s.proofs == nil {
		return nil
	}
	return s.proofs.Validate(files)
}

func (s *Service) saveFiles(ctx context.Context, files []*multipart.FileHeader) ([]ProofFile, error) {
	saved := make([]ProofFile, 0, len(files))
	if s.proofs == nil {
		return saved, nil
	}
	for _, fh := range files {
		pf, err := s.proofs.Save(ctx, fh)
		if err != nil {
			s.removeFiles(ctx, saved)
			return nil, err
		}
		saved = append(saved, pf)
	}
	return saved, nil
}

// removeFiles is best effort. A leftover blob is logged and otherwise harmless.
func (s *Service) removeFiles(ctx context.Context, files []ProofFile) {
	if s.proofs == nil {
		return
	}
	for _, pf := range files {
		if err := s.proofs.Remove(context.WithoutCancel(ctx), pf.Filename); err != nil {
			s.logger.WarnContext(ctx, "failed to remove proof file", "filename", pf.Filename, "error", err)
		}
	}
}

func (s *Service) afterWrite(ctx context.Context, eventType string, a *Achievement, actor policy.Actor) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	if s.events != nil {
		s.events.Publish(ctx, events.AchievementEvent{
			Type:          eventType,
			AchievementID: a.ID,
			StudentID:     a.StudentID,
			Status:        string(a.Status),
			Points:        a.Points,
			ActorID:       actor.UserID,
			At:            s.now().UTC(),
		})
	}
}
