package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/directory"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const maxCodeSuffix = 99

// DirectorySyncService reconciles departments with the external directory feed.
type DirectorySyncService struct {
	departments repository.DepartmentRepository
	directory   directory.Fetcher
	state       repository.SyncStateRepository
	lockTTL     time.Duration
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// DirectorySyncDependencies bundles what the sync needs. State may be nil.
type DirectorySyncDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	Directory      directory.Fetcher
	State          repository.SyncStateRepository
	LockTTL        time.Duration
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewDirectorySyncService builds the service.
func NewDirectorySyncService(deps DirectorySyncDependencies) *DirectorySyncService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DirectorySyncService{
		departments: deps.DepartmentRepo,
		directory:   deps.Directory,
		state:       deps.State,
		lockTTL:     ttl,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		now:         time.Now,
	}
}

// DeriveCode builds a department code from a company name: the first ten characters,
// upper-cased, with spaces removed.
func DeriveCode(name string) string {
	runes := []rune(name)
	if len(runes) > domain.DepartmentCodeMaxLen {
		runes = runes[:domain.DepartmentCodeMaxLen]
	}
	return strings.ReplaceAll(strings.ToUpper(string(runes)), " ", "")
}

// Sync fetches the feed and upserts one department per distinct company name.
// Existing departments only ever get their manager updated.
func (s *DirectorySyncService) Sync(ctx context.Context, actor *domain.User) (*domain.SyncResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	release, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	entities, err := s.directory.Fetch(ctx)
	if err != nil {
		return nil, classifyFetchError(err)
	}

	result := &domain.SyncResult{}
	seen := make(map[string]struct{}, len(entities))
	for _, entity := range entities {
		name := strings.TrimSpace(entity.CompanyName())
		if name == "" {
			result.Skipped++
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		outcome, err := s.upsert(ctx, name, entity.ManagerName())
		if err != nil {
			s.logger.Error("directory sync aborted",
				zap.String("department", name),
				zap.Int("created", result.Created),
				zap.Int("updated", result.Updated),
				zap.Error(err))
			return nil, apperrors.NewSyncError(err)
		}
		switch outcome {
		case repository.UpsertCreated:
			result.Created++
		case repository.UpsertUpdated:
			result.Updated++
		}
	}
	result.FinishedAt = s.now().UTC()

	if s.state != nil {
		if err := s.state.SaveResult(ctx, *result); err != nil {
			s.logger.Warn("failed to store sync result", zap.Error(err))
		}
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventDepartmentsSynced,
		Actor:   actorFor(actor),
		Payload: events.DepartmentsSyncedPayload{Created: result.Created, Updated: result.Updated, Skipped: result.Skipped},
	})
	s.logger.Info("directory sync finished",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// LastResult returns the most recent completed sync, or nil.
func (s *DirectorySyncService) LastResult(ctx context.Context, actor *domain.User) (*domain.SyncResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if s.state == nil {
		return nil, nil
	}
	return s.state.LastResult(ctx)
}

// upsert retries with a numeric suffix when two companies derive the same code.
func (s *DirectorySyncService) upsert(ctx context.Context, name, manager string) (repository.UpsertOutcome, error) {
	base := DeriveCode(name)
	code := base
	for attempt := 2; ; attempt++ {
		dept := &domain.Department{Name: name, Code: code, Manager: manager}
		outcome, err := s.departments.Upsert(ctx, dept)
		var dup *repository.DuplicateError
		if !errors.As(err, &dup) || dup.Field != "code" || attempt > maxCodeSuffix {
			return outcome, err
		}
		code = suffixedCode(base, attempt)
	}
}

func suffixedCode(base string, n int) string {
	suffix := fmt.Sprint(n)
	runes := []rune(base)
	if keep := domain.DepartmentCodeMaxLen - len(suffix); len(runes) > keep {
		runes = runes[:keep]
	}
	return string(runes) + suffix
}

func (s *DirectorySyncService) lock(ctx context.Context) (func(), error) {
	noop := func() {}
	if s.state == nil {
		return noop, nil
	}
	owner := uuid.NewString()
	acquired, err := s.state.AcquireLock(ctx, owner, s.lockTTL)
	if err != nil {
		s.logger.Warn("sync lock unavailable, continuing without it", zap.Error(err))
		return noop, nil
	}
	if !acquired {
		return nil, apperrors.NewConflict("sync already running", nil)
	}
	return func() {
		if err := s.state.ReleaseLock(context.WithoutCancel(ctx), owner); err != nil {
			s.logger.Warn("failed to release sync lock", zap.Error(err))
		}
	}, nil
}

func classifyFetchError(err error) error {
	var upstream *directory.UpstreamError
	if errors.As(err, &upstream) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewUpstreamUnavailable(err)
	}
	return apperrors.NewSyncError(err)
}
