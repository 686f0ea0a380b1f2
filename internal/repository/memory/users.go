package memory

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, stored := range r.s.users {
		if stored.Username == user.Username {
			return &repository.DuplicateError{Field: "username", Value: user.Username}
		}
	}
	now := r.s.now()
	user.ID = r.s.nextID("users")
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	for id, other := range r.s.users {
		if id != user.ID && other.Username == user.Username {
			return &repository.DuplicateError{Field: "username", Value: user.Username}
		}
	}
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &stored, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, stored := range r.s.users {
		if stored.Username == username {
			out := stored
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepo) List(context.Context) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type historyRepo struct{ s *Store }

func (r *historyRepo) Create(_ context.Context, entry *domain.RequestHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.nextID("history")
	entry.CreatedAt = r.s.now()
	r.s.history = append(r.s.history, *entry)
	return nil
}

func (r *historyRepo) ListByRequest(_ context.Context, requestID int64) ([]domain.RequestHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.RequestHistory{}
	for _, entry := range r.s.history {
		if entry.RequestID == requestID {
			out = append(out, entry)
		}
	}
	return out, nil
}
