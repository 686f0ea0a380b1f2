package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const resourceDepartment = "department"

// DepartmentsHandler manages department endpoints, including the directory sync.
type DepartmentsHandler struct {
	departments *service.DepartmentService
	sync        *service.DirectorySyncService
	stats       *service.StatsService
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(departments *service.DepartmentService, sync *service.DirectorySyncService, stats *service.StatsService) *DepartmentsHandler {
	return &DepartmentsHandler{departments: departments, sync: sync, stats: stats}
}

// List GET /api/departments.
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	depts, err := h.departments.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		items = append(items, dto.NewDepartmentResponse(d.Department, d.RequestCount))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/departments/:id.
func (h *DepartmentsHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, resourceDepartment)
	if err != nil {
		return err
	}
	dept, err := h.departments.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept.Department, dept.RequestCount)})
}

// Create POST /api/departments.
func (h *DepartmentsHandler) Create(c *fiber.Ctx) error {
	var in service.DepartmentInput
	if err := c.BodyParser(&in); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dept, err := h.departments.Create(c.UserContext(), auth.UserFromContext(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewDepartmentResponse(*dept, 0)})
}

// Update PUT /api/departments/:id replaces all fields; PATCH changes only those sent.
func (h *DepartmentsHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c, resourceDepartment)
	if err != nil {
		return err
	}
	actor := auth.UserFromContext(c)

	var dept *domain.Department
	if c.Method() == fiber.MethodPatch {
		var patch service.DepartmentPatch
		if err := c.BodyParser(&patch); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		dept, err = h.departments.Patch(c.UserContext(), actor, id, patch)
	} else {
		var in service.DepartmentInput
		if err := c.BodyParser(&in); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		dept, err = h.departments.Update(c.UserContext(), actor, id, in)
	}
	if err != nil {
		return err
	}
	withCount, err := h.departments.Get(c.UserContext(), dept.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponse(withCount.Department, withCount.RequestCount)})
}

// Delete DELETE /api/departments/:id.
func (h *DepartmentsHandler) Delete(c *fiber.Ctx) error {
	id, err := idParam(c, resourceDepartment)
	if err != nil {
		return err
	}
	if err := h.departments.Delete(c.UserContext(), auth.UserFromContext(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Stats GET /api/departments/stats.
func (h *DepartmentsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.stats.DepartmentStats(c.UserContext(), auth.UserFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Sync POST /api/departments/sync-api.
func (h *DepartmentsHandler) Sync(c *fiber.Ctx) error {
	result, err := h.sync.Sync(c.UserContext(), auth.UserFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SyncResponse{
		Message: "Departments synced successfully",
		Result:  *result,
	}})
}

// LastSync GET /api/departments/sync-api.
func (h *DepartmentsHandler) LastSync(c *fiber.Ctx) error {
	result, err := h.sync.LastResult(c.UserContext(), auth.UserFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
