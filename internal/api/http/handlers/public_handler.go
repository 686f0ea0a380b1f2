package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// PublicHandler serves the unauthenticated submission form endpoints.
type PublicHandler struct {
	requests    *service.RequestService
	departments *service.DepartmentService
}

// NewPublicHandler constructs handler.
func NewPublicHandler(requests *service.RequestService, departments *service.DepartmentService) *PublicHandler {
	return &PublicHandler{requests: requests, departments: departments}
}

// SubmitRequest POST /api/public/submit-request.
func (h *PublicHandler) SubmitRequest(c *fiber.Ctx) error {
	var in service.RequestInput
	if err := c.BodyParser(&in); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req, err := h.requests.Submit(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"message": "Request submitted successfully",
		"request": dto.NewPublicRequestStatus(req),
	}})
}

// RequestStatus GET /api/public/request-status/:id.
func (h *PublicHandler) RequestStatus(c *fiber.Ctx) error {
	id, err := idParam(c, resourceRequest)
	if err != nil {
		return err
	}
	req, found, err := h.requests.LookupStatus(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NewNotFound(resourceRequest, map[string]any{"id": id})
	}
	return c.JSON(fiber.Map{"data": dto.NewPublicRequestStatus(req)})
}

// DepartmentChoices GET /api/public/departments.
func (h *PublicHandler) DepartmentChoices(c *fiber.Ctx) error {
	choices, err := h.departments.Choices(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DepartmentChoicesResponse{
		Source:      string(choices.Source),
		Departments: choices.Choices,
	}})
}
