package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const resourceRequest = "service request"

// RequestsHandler manages authenticated request endpoints.
type RequestsHandler struct {
	requests *service.RequestService
	stats    *service.StatsService
	reports  *service.ReportService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requests *service.RequestService, stats *service.StatsService, reports *service.ReportService) *RequestsHandler {
	return &RequestsHandler{requests: requests, stats: stats, reports: reports}
}

// List GET /api/requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	page, err := h.requests.List(c.UserContext(), parseRequestQuery(c))
	if err != nil {
		return err
	}
	assignees, err := h.requests.Assignees(c.UserContext(), page.Items...)
	if err != nil {
		return err
	}
	items := make([]dto.RequestResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toRequestResponse(&page.Items[i], assignees))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PageMeta{Page: page.Page, PageSize: page.PageSize, Total: page.Total},
	})
}

// Create POST /api/requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	var in service.StaffRequestInput
	if err := c.BodyParser(&in); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req, err := h.requests.Create(c.UserContext(), auth.UserFromContext(c), in)
	if err != nil {
		return err
	}
	return h.respond(c, fiber.StatusCreated, req)
}

// Get GET /api/requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, resourceRequest)
	if err != nil {
		return err
	}
	req, err := h.requests.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return h.respond(c, fiber.StatusOK, req)
}

// Update PUT|PATCH /api/requests/:id.
func (h *RequestsHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c, resourceRequest)
	if err != nil {
		return err
	}
	var patch service.RequestPatch
	if err := c.BodyParser(&patch); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req, err := h.requests.Update(c.UserContext(), auth.UserFromContext(c), id, patch)
	if err != nil {
		return err
	}
	return h.respond(c, fiber.StatusOK, req)
}

// UpdateStatus POST /api/requests/:id/update-status.
func (h *RequestsHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := idParam(c, resourceRequest)
	if err != nil {
		return err
	}
	var body dto.UpdateStatusRequest
	if err := c.BodyParser(&body); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	change, err := h.requests.UpdateStatus(c.UserContext(), auth.UserFromContext(c), id, body.Status)
	if err != nil {
		return err
	}
	assignees, err := h.requests.Assignees(c.UserContext(), *change.Request)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatusChangeResponse{
		Message:      change.Message(),
		OldStatus:    change.Old,
		NewStatus:    change.New,
		AutoAssigned: change.AutoAssigned,
		Request:      toRequestResponse(change.Request, assignees),
	}})
}

// History GET /api/requests/:id/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	id, err := idParam(c, resourceRequest)
	if err != nil {
		return err
	}
	entries, err := h.requests.History(c.UserContext(), auth.UserFromContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryEntries(entries)})
}

// Stats GET /api/requests/stats.
func (h *RequestsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.stats.RequestStats(c.UserContext(), auth.UserFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Export GET /api/requests/export.
func (h *RequestsHandler) Export(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.reports.Export(c.UserContext(), auth.UserFromContext(c), parseRequestQuery(c), &buf); err != nil {
		return err
	}
	fileName := service.ReportFileName(time.Now().Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, service.ReportContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Send(buf.Bytes())
}

func (h *RequestsHandler) respond(c *fiber.Ctx, status int, req *domain.ServiceRequest) error {
	assignees, err := h.requests.Assignees(c.UserContext(), *req)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(fiber.Map{"data": toRequestResponse(req, assignees)})
}

func toRequestResponse(req *domain.ServiceRequest, assignees map[int64]*domain.User) dto.RequestResponse {
	var assignee *domain.User
	if req.AssignedTo != nil {
		assignee = assignees[*req.AssignedTo]
	}
	return dto.NewRequestResponse(req, assignee)
}

func parseRequestQuery(c *fiber.Ctx) service.RequestListFilter {
	return service.RequestListFilter{
		Status:     c.Query("status"),
		Category:   c.Query("category"),
		Department: c.Query("department"),
		Search:     c.Query("search"),
		Page:       c.QueryInt("page", 1),
		PageSize:   c.QueryInt("page_size", 20),
	}
}
