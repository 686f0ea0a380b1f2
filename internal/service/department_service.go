package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/directory"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const choicesFeedLimit = 10

// ChoiceSource tells where department choices came from.
type ChoiceSource string

const (
	ChoiceSourceStore     ChoiceSource = "store"
	ChoiceSourceDirectory ChoiceSource = "directory"
	ChoiceSourceFallback  ChoiceSource = "fallback"
)

// DepartmentChoices is the list offered on the public submission form.
type DepartmentChoices struct {
	Source  ChoiceSource
	Choices []directory.Choice
}

// DepartmentPatch carries a partial department update.
type DepartmentPatch struct {
	Name    null.String `json:"name"`
	Code    null.String `json:"code"`
	Manager null.String `json:"manager"`
}

// DepartmentService manages departments.
type DepartmentService struct {
	departments repository.DepartmentRepository
	directory   directory.Fetcher
	fallback    []directory.Choice
	logger      *zap.Logger
}

// DepartmentDependencies bundles what the department service needs.
type DepartmentDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	Directory      directory.Fetcher
	Fallback       []directory.Choice
	Logger         *zap.Logger
}

// NewDepartmentService builds the service.
func NewDepartmentService(deps DepartmentDependencies) *DepartmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{
		departments: deps.DepartmentRepo,
		directory:   deps.Directory,
		fallback:    deps.Fallback,
		logger:      logger,
	}
}

// List returns every department with its request count, ordered by name.
func (s *DepartmentService) List(ctx context.Context) ([]domain.DepartmentWithCount, error) {
	return s.departments.ListWithCounts(ctx)
}

// Get returns a department with its request count.
func (s *DepartmentService) Get(ctx context.Context, id int64) (*domain.DepartmentWithCount, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "department", id)
	}
	count, err := s.departments.CountRequests(ctx, dept.Name)
	if err != nil {
		return nil, err
	}
	return &domain.DepartmentWithCount{Department: *dept, RequestCount: count}, nil
}

// Create adds a department. Names and codes are unique.
func (s *DepartmentService) Create(ctx context.Context, actor *domain.User, in DepartmentInput) (*domain.Department, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := ValidateDepartmentInput(in); err != nil {
		return nil, err
	}
	dept := &domain.Department{Name: in.Name, Code: in.Code, Manager: in.Manager}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, duplicateToValidation(err)
	}
	s.logger.Info("department created", zap.Int64("department_id", dept.ID), zap.String("name", dept.Name))
	return dept, nil
}

// Update replaces every editable field.
func (s *DepartmentService) Update(ctx context.Context, actor *domain.User, id int64, in DepartmentInput) (*domain.Department, error) {
	return s.Patch(ctx, actor, id, DepartmentPatch{
		Name:    null.StringFrom(in.Name),
		Code:    null.StringFrom(in.Code),
		Manager: null.StringFrom(in.Manager),
	})
}

// Patch changes only the fields present in patch.
func (s *DepartmentService) Patch(ctx context.Context, actor *domain.User, id int64, patch DepartmentPatch) (*domain.Department, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "department", id)
	}
	in := DepartmentInput{
		Name:    pick(patch.Name, dept.Name),
		Code:    pick(patch.Code, dept.Code),
		Manager: pick(patch.Manager, dept.Manager),
	}
	in.Normalize()
	if err := ValidateDepartmentInput(in); err != nil {
		return nil, err
	}
	dept.Name, dept.Code, dept.Manager = in.Name, in.Code, in.Manager
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, notFound(duplicateToValidation(err), "department", id)
	}
	return dept, nil
}

// Delete removes a department unless requests still reference it by name.
func (s *DepartmentService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "department", id)
	}
	err = s.departments.Delete(ctx, id)
	if errors.Is(err, repository.ErrReferenced) {
		count, cerr := s.departments.CountRequests(ctx, dept.Name)
		if cerr != nil {
			return cerr
		}
		return apperrors.NewDepartmentInUse(dept.Name, count)
	}
	if err != nil {
		return notFound(err, "department", id)
	}
	s.logger.Info("department deleted", zap.Int64("department_id", id), zap.String("name", dept.Name))
	return nil
}

// Choices lists departments for the submission form. An empty store is seeded from the
// directory feed; when the feed fails too, the static fallback list is returned.
func (s *DepartmentService) Choices(ctx context.Context) (*DepartmentChoices, error) {
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(depts) > 0 {
		return &DepartmentChoices{Source: ChoiceSourceStore, Choices: toChoices(depts)}, nil
	}

	if s.directory != nil {
		seeded, err := s.seedFromDirectory(ctx)
		if err == nil && len(seeded) > 0 {
			return &DepartmentChoices{Source: ChoiceSourceDirectory, Choices: toChoices(seeded)}, nil
		}
		if err != nil {
			s.logger.Warn("department directory unavailable, using fallback list", zap.Error(err))
		}
	}
	return &DepartmentChoices{Source: ChoiceSourceFallback, Choices: s.fallback}, nil
}

func (s *DepartmentService) seedFromDirectory(ctx context.Context) ([]domain.Department, error) {
	entities, err := s.directory.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(entities) > choicesFeedLimit {
		entities = entities[:choicesFeedLimit]
	}
	for _, entity := range entities {
		name := entity.CompanyName()
		if name == "" {
			continue
		}
		dept := &domain.Department{
			Name:    name,
			Code:    fmt.Sprintf("DEPT%02d", entity.ID),
			Manager: entity.ManagerName(),
		}
		if _, err := s.departments.CreateIfAbsent(ctx, dept); err != nil {
			var dup *repository.DuplicateError
			if errors.As(err, &dup) {
				s.logger.Warn("skipping directory department", zap.String("name", name), zap.Error(err))
				continue
			}
			return nil, err
		}
	}
	return s.departments.List(ctx)
}

func toChoices(depts []domain.Department) []directory.Choice {
	out := make([]directory.Choice, 0, len(depts))
	for _, dept := range depts {
		out = append(out, directory.Choice{Code: dept.Code, Name: dept.Name})
	}
	return out
}

func duplicateToValidation(err error) error {
	var dup *repository.DuplicateError
	if !errors.As(err, &dup) {
		return err
	}
	return apperrors.NewValidationError("invalid payload", map[string]any{
		dup.Field: fmt.Sprintf("department with this %s already exists.", dup.Field),
	})
}
