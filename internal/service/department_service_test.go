package service

import (
	"context"
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/directory"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var staffUser = &domain.User{ID: 1, Username: "agent", IsStaff: true, IsActive: true}

func newDepartmentService(store *memory.Store, fetcher directory.Fetcher) *DepartmentService {
	return NewDepartmentService(DepartmentDependencies{
		DepartmentRepo: store.Departments(),
		Directory:      fetcher,
		Fallback:       []directory.Choice{{Code: "IT", Name: "Information Technology"}},
	})
}

func TestCreateDepartmentRejectsDuplicates(t *testing.T) {
	svc := newDepartmentService(memory.NewStore(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, staffUser, DepartmentInput{Name: "Finance", Code: "FIN", Manager: "Dana"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, staffUser, DepartmentInput{Name: "Finance", Code: "FIN2"})
	assert.Equal(t, apperrors.CodeValidation, domainCode(t, err))
	assert.Contains(t, apperrors.ToDomainError(err).Details, "name")

	_, err = svc.Create(ctx, staffUser, DepartmentInput{Name: "Fintech", Code: "FIN"})
	assert.Equal(t, apperrors.CodeValidation, domainCode(t, err))
	assert.Contains(t, apperrors.ToDomainError(err).Details, "code")

	_, err = svc.Create(ctx, staffUser, DepartmentInput{Name: "Legal", Code: "TOOLONGCODE1"})
	assert.Equal(t, apperrors.CodeValidation, domainCode(t, err))

	_, err = svc.Create(ctx, &domain.User{ID: 9}, DepartmentInput{Name: "Legal", Code: "LEG"})
	assert.Equal(t, apperrors.CodeForbidden, domainCode(t, err))
}

func TestDeleteDepartmentGuard(t *testing.T) {
	store := memory.NewStore()
	svc := newDepartmentService(store, nil)
	ctx := context.Background()

	it, err := svc.Create(ctx, staffUser, DepartmentInput{Name: "IT", Code: "IT"})
	require.NoError(t, err)
	hr, err := svc.Create(ctx, staffUser, DepartmentInput{Name: "HR", Code: "HR"})
	require.NoError(t, err)
	require.NoError(t, store.Requests().Create(ctx, &domain.ServiceRequest{
		RequesterName: "Alice", Department: "IT", Category: domain.CategoryOther, Description: "x", Status: domain.StatusPending,
	}))

	err = svc.Delete(ctx, staffUser, it.ID)
	assert.Equal(t, apperrors.CodeDepartmentInUse, domainCode(t, err))
	assert.Equal(t, int64(1), apperrors.ToDomainError(err).Details["request_count"])

	require.NoError(t, svc.Delete(ctx, staffUser, hr.ID))
	_, err = svc.Get(ctx, hr.ID)
	assert.Equal(t, apperrors.CodeNotFound, domainCode(t, err))

	got, err := svc.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.RequestCount)
}

func TestPatchDepartment(t *testing.T) {
	svc := newDepartmentService(memory.NewStore(), nil)
	ctx := context.Background()
	dept, err := svc.Create(ctx, staffUser, DepartmentInput{Name: "Sales", Code: "SAL", Manager: "Ann"})
	require.NoError(t, err)

	updated, err := svc.Patch(ctx, staffUser, dept.ID, DepartmentPatch{Manager: null.StringFrom("Ben")})
	require.NoError(t, err)
	assert.Equal(t, "Sales", updated.Name)
	assert.Equal(t, "Ben", updated.Manager)

	_, err = svc.Update(ctx, staffUser, dept.ID, DepartmentInput{Name: "", Code: "SAL"})
	assert.Equal(t, apperrors.CodeValidation, domainCode(t, err))

	_, err = svc.Patch(ctx, staffUser, 99, DepartmentPatch{})
	assert.Equal(t, apperrors.CodeNotFound, domainCode(t, err))
}

func TestChoicesSources(t *testing.T) {
	ctx := context.Background()

	failing := &stubFetcher{err: &directory.UpstreamError{StatusCode: 500}}
	choices, err := newDepartmentService(memory.NewStore(), failing).Choices(ctx)
	require.NoError(t, err)
	assert.Equal(t, ChoiceSourceFallback, choices.Source)
	assert.Equal(t, "Information Technology", choices.Choices[0].Name)

	store := memory.NewStore()
	feed := &stubFetcher{entities: []directory.Entity{
		entity(1, "Leanne Graham", "Romaguera-Crona"),
		entity(2, "Ervin Howell", "Deckow-Crist"),
	}}
	svc := newDepartmentService(store, feed)
	choices, err = svc.Choices(ctx)
	require.NoError(t, err)
	assert.Equal(t, ChoiceSourceDirectory, choices.Source)
	require.Len(t, choices.Choices, 2)
	assert.Equal(t, directory.Choice{Code: "DEPT02", Name: "Deckow-Crist"}, choices.Choices[0])

	choices, err = svc.Choices(ctx)
	require.NoError(t, err)
	assert.Equal(t, ChoiceSourceStore, choices.Source)
	assert.Equal(t, 1, feed.calls)
}
