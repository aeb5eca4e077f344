// Package portfolio assembles the public, unauthenticated view of a student's
// approved work.
package portfolio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/apperr"
	"achievement-service/internal/metrics"
	"achievement-service/internal/user"
)

var ErrNotFound = apperr.New(apperr.ErrNotFound, "student not found")

type UserReader interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

type AchievementReader interface {
	ListPublicApproved(ctx context.Context, studentID int64) ([]achievement.Achievement, error)
}

type Summary struct {
	Total       int            `json:"total"`
	TotalPoints int            `json:"totalPoints"`
	ByCategory  map[string]int `json:"byCategory"`
	ByLevel     map[string]int `json:"byLevel"`
}

type Portfolio struct {
	Student      user.Public               `json:"student"`
	Achievements []achievement.Achievement `json:"achievements"`
	Stats        Summary                   `json:"stats"`
}

type Service struct {
	users        UserReader
	achievements AchievementReader
	queryTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

func NewService(users UserReader, achievements AchievementReader, queryTimeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Service {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Service{
		users:        users,
		achievements: achievements,
		queryTimeout: queryTimeout,
		logger:       logger,
		metrics:      m,
	}
}

// Get returns the portfolio of a student. Staff accounts have none.
func (s *Service) Get(ctx context.Context, studentID int64) (*Portfolio, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, studentID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Role != user.RoleStudent {
		return nil, ErrNotFound
	}

	items, err := s.achievements.ListPublicApproved(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []achievement.Achievement{}
	}

	s.metrics.Achievements.RecordPortfolioViewed(ctx)

	return &Portfolio{
		Student:      u.Public(),
		Achievements: items,
		Stats:        Summarize(items),
	}, nil
}

// Summarize totals the given achievements by category and level.
func Summarize(items []achievement.Achievement) Summary {
	sum := Summary{
		ByCategory: make(map[string]int),
		ByLevel:    make(map[string]int),
	}
	for _, a := range items {
		sum.Total++
		sum.TotalPoints += a.Points
		sum.ByCategory[a.Category]++
		sum.ByLevel[a.Level]++
	}
	return sum
}
