package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/directory"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

type stubFetcher struct {
	entities []directory.Entity
	err      error
	calls    int
}

func (f *stubFetcher) Fetch(context.Context) ([]directory.Entity, error) {
	f.calls++
	return f.entities, f.err
}

func entity(id int64, name, company string) directory.Entity {
	e := directory.Entity{ID: id}
	if name != "" {
		e.Name = &name
	}
	if company != "" {
		e.Company = &directory.Company{Name: company}
	}
	return e
}

func newSyncService(store *memory.Store, fetcher directory.Fetcher, state repository.SyncStateRepository) *DirectorySyncService {
	return NewDirectorySyncService(DirectorySyncDependencies{
		DepartmentRepo: store.Departments(),
		Directory:      fetcher,
		State:          state,
	})
}

func TestDeriveCode(t *testing.T) {
	cases := map[string]string{
		"Romaguera-Crona":  "ROMAGUERA-",
		"Deckow-Crist":     "DECKOW-CRI",
		"Hoeger LLC":       "HOEGERLLC",
		"Abernathy Group":  "ABERNATHY",
		"IT":               "IT",
		"Société Générale": "SOCIÉTÉGÉ",
	}
	for name, want := range cases {
		assert.Equal(t, want, DeriveCode(name), name)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	fetcher := &stubFetcher{entities: []directory.Entity{
		entity(1, "Leanne Graham", "Romaguera-Crona"),
		entity(2, "Ervin Howell", "Deckow-Crist"),
		entity(3, "", "Hoeger LLC"),
		entity(4, "Duplicate", "Deckow-Crist"),
		entity(5, "No Company", ""),
	}}
	state := memory.NewSyncState()
	svc := newSyncService(store, fetcher, state)
	staff := &domain.User{ID: 1, IsStaff: true}

	first, err := svc.Sync(context.Background(), staff)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)
	assert.Equal(t, 0, first.Updated)
	assert.Equal(t, 1, first.Skipped)

	hoeger, err := store.Departments().GetByName(context.Background(), "Hoeger LLC")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", hoeger.Manager)
	assert.Equal(t, "HOEGERLLC", hoeger.Code)

	deckow, err := store.Departments().GetByName(context.Background(), "Deckow-Crist")
	require.NoError(t, err)
	assert.Equal(t, "Ervin Howell", deckow.Manager)

	second, err := svc.Sync(context.Background(), staff)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Updated)

	last, err := svc.LastResult(context.Background(), staff)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 0, last.Created)
}

func TestSyncUpdatesManagerOnly(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Departments().Create(ctx, &domain.Department{Name: "Deckow-Crist", Code: "DC", Manager: "Old"}))
	svc := newSyncService(store, &stubFetcher{entities: []directory.Entity{entity(2, "Ervin Howell", "Deckow-Crist")}}, nil)

	result, err := svc.Sync(ctx, &domain.User{ID: 1, IsStaff: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)

	dept, err := store.Departments().GetByName(ctx, "Deckow-Crist")
	require.NoError(t, err)
	assert.Equal(t, "DC", dept.Code)
	assert.Equal(t, "Ervin Howell", dept.Manager)
}

func TestSyncResolvesCodeCollisions(t *testing.T) {
	store := memory.NewStore()
	svc := newSyncService(store, &stubFetcher{entities: []directory.Entity{
		entity(1, "A", "Romaguera-Crona"),
		entity(2, "B", "Romaguera-Jacobson"),
	}}, nil)

	result, err := svc.Sync(context.Background(), &domain.User{ID: 1, IsStaff: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)

	dept, err := store.Departments().GetByName(context.Background(), "Romaguera-Jacobson")
	require.NoError(t, err)
	assert.Equal(t, "ROMAGUERA2", dept.Code)
}

func TestSyncErrors(t *testing.T) {
	staff := &domain.User{ID: 1, IsStaff: true}

	svc := newSyncService(memory.NewStore(), &stubFetcher{err: &directory.UpstreamError{StatusCode: 503}}, nil)
	_, err := svc.Sync(context.Background(), staff)
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, domainCode(t, err))

	svc = newSyncService(memory.NewStore(), &stubFetcher{err: errors.New("decode directory feed: bad json")}, nil)
	_, err = svc.Sync(context.Background(), staff)
	assert.Equal(t, apperrors.CodeSyncFailed, domainCode(t, err))

	_, err = svc.Sync(context.Background(), &domain.User{ID: 2})
	assert.Equal(t, apperrors.CodeForbidden, domainCode(t, err))
}

func TestSyncThroughHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := directory.NewClient(config.DirectoryConfig{FeedURL: srv.URL, TimeoutSeconds: 2}, zap.NewNop())
	svc := newSyncService(memory.NewStore(), client, nil)
	_, err := svc.Sync(context.Background(), &domain.User{ID: 1, IsStaff: true})
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, domainCode(t, err))
}

func TestSyncFeedTimeoutIsUpstreamUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	client := directory.NewClient(config.DirectoryConfig{FeedURL: srv.URL, TimeoutSeconds: 1, MaxRetries: 2}, zap.NewNop())
	store := memory.NewStore()
	svc := newSyncService(store, client, nil)

	start := time.Now()
	_, err := svc.Sync(context.Background(), &domain.User{ID: 1, IsStaff: true})
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, domainCode(t, err))
	assert.Less(t, time.Since(start), 3*time.Second)

	depts, err := store.Departments().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, depts)
}

func TestSyncRejectsConcurrentRun(t *testing.T) {
	state := memory.NewSyncState()
	acquired, err := state.AcquireLock(context.Background(), "someone-else", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	fetcher := &stubFetcher{}
	svc := newSyncService(memory.NewStore(), fetcher, state)
	_, err = svc.Sync(context.Background(), &domain.User{ID: 1, IsStaff: true})
	assert.Equal(t, apperrors.CodeConflict, domainCode(t, err))
	assert.Zero(t, fetcher.calls)

	require.NoError(t, state.ReleaseLock(context.Background(), "someone-else"))
	_, err = svc.Sync(context.Background(), &domain.User{ID: 1, IsStaff: true})
	require.NoError(t, err)
}
