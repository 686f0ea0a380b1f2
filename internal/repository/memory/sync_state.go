package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type syncState struct {
	mu        sync.Mutex
	owner     string
	expiresAt time.Time
	last      *domain.SyncResult
}

// NewSyncState returns a process-local SyncStateRepository.
func NewSyncState() repository.SyncStateRepository {
	return &syncState{}
}

func (s *syncState) AcquireLock(_ context.Context, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if s.owner != "" && now.Before(s.expiresAt) {
		return false, nil
	}
	s.owner = owner
	s.expiresAt = now.Add(ttl)
	return true, nil
}

func (s *syncState) ReleaseLock(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == owner {
		s.owner = ""
	}
	return nil
}

func (s *syncState) SaveResult(_ context.Context, result domain.SyncResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &result
	return nil
}

func (s *syncState) LastResult(context.Context) (*domain.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, nil
	}
	out := *s.last
	return &out, nil
}
