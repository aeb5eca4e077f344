// Package usertest provides an in-memory user.Repository for service tests.
package usertest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"achievement-service/internal/paging"
	"achievement-service/internal/user"
)

type Memory struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*user.User
}

func NewMemory() *Memory {
	return &Memory{users: make(map[int64]*user.User)}
}

// Add stores a copy of u, assigning an id when it has none.
func (m *Memory) Add(u user.User) *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		m.nextID++
		u.ID = m.nextID
	} else if u.ID > m.nextID {
		m.nextID = u.ID
	}
	u.Email = user.NormalizeEmail(u.Email)
	stored := u
	m.users[u.ID] = &stored
	cp := stored
	return &cp
}

func (m *Memory) Create(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	for _, existing := range m.users {
		if existing.Email == user.NormalizeEmail(u.Email) {
			m.mu.Unlock()
			return user.ErrEmailExists
		}
	}
	m.mu.Unlock()
	*u = *m.Add(*u)
	return nil
}

func (m *Memory) GetByID(ctx context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.find(func(u *user.User) bool { return u.Email == user.NormalizeEmail(email) })
}

func (m *Memory) GetByResetTokenHash(ctx context.Context, hash string, now time.Time) (*user.User, error) {
	return m.find(func(u *user.User) bool {
		return hash != "" && u.ResetTokenHash == hash && u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(now)
	})
}

// Update stores the whole record; the column list is ignored.
func (m *Memory) Update(ctx context.Context, u *user.User, columns ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *Memory) ListStudents(ctx context.Context, filter user.StudentFilter) ([]user.User, int, error) {
	m.mu.Lock()
	var out []user.User
	for _, u := range m.users {
		if u.Role != user.RoleStudent || !u.IsActive {
			continue
		}
		if filter.Department != "" && u.Department != filter.Department {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *u)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	p := paging.Params{Page: filter.Page, Limit: filter.Limit}.Normalize()
	total := len(out)
	start := min(p.Offset(), total)
	end := min(start+p.Limit, total)
	return out[start:end], total, nil
}

func (m *Memory) ActiveStudentEmails(ctx context.Context) ([]string, error) {
	students, _, _ := m.ListStudents(ctx, user.StudentFilter{Limit: paging.MaxLimit})
	emails := make([]string, 0, len(students))
	for _, u := range students {
		emails = append(emails, u.Email)
	}
	return emails, nil
}

func (m *Memory) find(match func(*user.User) bool) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}
