package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const maxPageSize = 100

// RequestService coordinates the request lifecycle.
type RequestService struct {
	requests   repository.ServiceRequestRepository
	users      repository.UserRepository
	history    repository.RequestHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// RequestDependencies bundles repositories for the request service.
type RequestDependencies struct {
	RequestRepo repository.ServiceRequestRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.RequestHistoryRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewRequestService builds the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		requests:   deps.RequestRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// StaffRequestInput extends a submission with fields only staff may set.
type StaffRequestInput struct {
	RequestInput
	Status     string `json:"status"`
	AssignedTo *int64 `json:"assigned_to"`
}

// OptionalID records whether a nullable id was present in a JSON payload.
type OptionalID struct {
	Set   bool
	Value null.Int64
}

// UnmarshalJSON runs only for keys present in the payload, explicit null included.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	return o.Value.UnmarshalJSON(data)
}

// RequestPatch carries a partial update. Invalid (absent) fields are left unchanged.
type RequestPatch struct {
	RequesterName  null.String `json:"requester_name"`
	RequesterEmail null.String `json:"requester_email"`
	Department     null.String `json:"department"`
	Category       null.String `json:"category"`
	Description    null.String `json:"description"`
	Status         null.String `json:"status"`
	AssignedTo     OptionalID  `json:"assigned_to"`
}

// RequestListFilter captures query parameters for listing.
type RequestListFilter struct {
	Status     string
	Category   string
	Department string
	Search     string
	Page       int
	PageSize   int
}

// RequestPage is one page of a filtered listing.
type RequestPage struct {
	Items    []domain.ServiceRequest
	Total    int64
	Page     int
	PageSize int
}

// StatusChange reports the outcome of a status update.
type StatusChange struct {
	Old          domain.RequestStatus
	New          domain.RequestStatus
	AutoAssigned bool
	Request      *domain.ServiceRequest
}

// Message is the human readable summary returned to callers.
func (c StatusChange) Message() string {
	return fmt.Sprintf("Status updated from %s to %s", c.Old, c.New)
}

// Submit records a public submission. The status is always pending and nothing is assigned.
func (s *RequestService) Submit(ctx context.Context, in RequestInput) (*domain.ServiceRequest, error) {
	in.Normalize()
	if err := ValidateRequestInput(in); err != nil {
		return nil, err
	}
	req := &domain.ServiceRequest{
		RequesterName:  in.RequesterName,
		RequesterEmail: in.RequesterEmail,
		Department:     in.Department,
		Category:       domain.RequestCategory(in.Category),
		Description:    in.Description,
		Status:         domain.StatusPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestSubmitted,
		RequestID: req.ID,
		Actor:     actorFor(nil),
		Payload: events.RequestSubmittedPayload{
			Department: req.Department,
			Category:   req.Category,
			Requester:  req.RequesterName,
		},
	})
	return req, nil
}

// Create records a request on behalf of staff, who may preset status and assignee.
func (s *RequestService) Create(ctx context.Context, actor *domain.User, in StaffRequestInput) (*domain.ServiceRequest, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := ValidateRequestInput(in.RequestInput); err != nil {
		return nil, err
	}
	status := domain.StatusPending
	if in.Status != "" {
		parsed, err := ValidateStatus(in.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	if err := s.ensureAssignee(ctx, in.AssignedTo); err != nil {
		return nil, err
	}
	req := &domain.ServiceRequest{
		RequesterName:  in.RequesterName,
		RequesterEmail: in.RequesterEmail,
		Department:     in.Department,
		Category:       domain.RequestCategory(in.Category),
		Description:    in.Description,
		Status:         status,
		AssignedTo:     in.AssignedTo,
	}
	if req.Status == domain.StatusInProgress && req.AssignedTo == nil {
		req.AssignedTo = &actor.ID
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestSubmitted,
		RequestID: req.ID,
		Actor:     actorFor(actor),
		Payload: events.RequestSubmittedPayload{
			Department: req.Department,
			Category:   req.Category,
			Requester:  req.RequesterName,
		},
	})
	return req, nil
}

// Update applies a partial or full edit by staff. A status change follows the same
// auto-assignment rule as UpdateStatus.
func (s *RequestService) Update(ctx context.Context, actor *domain.User, id int64, patch RequestPatch) (*domain.ServiceRequest, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "service request", id)
	}

	in := RequestInput{
		RequesterName:  pick(patch.RequesterName, req.RequesterName),
		RequesterEmail: pick(patch.RequesterEmail, req.RequesterEmail),
		Department:     pick(patch.Department, req.Department),
		Category:       pick(patch.Category, string(req.Category)),
		Description:    pick(patch.Description, req.Description),
	}
	in.Normalize()
	if err := ValidateRequestInput(in); err != nil {
		return nil, err
	}

	oldStatus := req.Status
	oldAssignee := req.AssignedTo
	if patch.Status.Valid {
		status, err := ValidateStatus(patch.Status.String)
		if err != nil {
			return nil, err
		}
		req.Status = status
	}
	if patch.AssignedTo.Set {
		var assignee *int64
		if patch.AssignedTo.Value.Valid {
			v := patch.AssignedTo.Value.Int64
			assignee = &v
		}
		if err := s.ensureAssignee(ctx, assignee); err != nil {
			return nil, err
		}
		req.AssignedTo = assignee
	}

	req.RequesterName = in.RequesterName
	req.RequesterEmail = in.RequesterEmail
	req.Department = in.Department
	req.Category = domain.RequestCategory(in.Category)
	req.Description = in.Description

	autoAssigned := false
	if req.Status != oldStatus && req.Status == domain.StatusInProgress && req.AssignedTo == nil {
		req.AssignedTo = &actor.ID
		autoAssigned = true
	}

	if err := s.requests.Update(ctx, req); err != nil {
		return nil, notFound(err, "service request", id)
	}

	if req.Status != oldStatus {
		s.recordChange(ctx, actor, req.ID, domain.ChangeTypeStatus,
			map[string]any{"status": oldStatus}, map[string]any{"status": req.Status})
		s.publishStatusChanged(ctx, actor, req.ID, oldStatus, req.Status)
	}
	if !sameID(oldAssignee, req.AssignedTo) {
		s.recordChange(ctx, actor, req.ID, domain.ChangeTypeAssignee,
			map[string]any{"assigned_to": oldAssignee}, map[string]any{"assigned_to": req.AssignedTo})
		if req.AssignedTo != nil {
			s.publishAssigned(ctx, actor, req.ID, *req.AssignedTo, autoAssigned)
		}
	}
	return req, nil
}

// UpdateStatus moves a request to newStatus. Any status may follow any other.
// Moving into in_progress from another status assigns the actor when nobody is
// assigned yet. Re-saving the current status records nothing.
func (s *RequestService) UpdateStatus(ctx context.Context, actor *domain.User, id int64, newStatus string) (*StatusChange, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	status, err := ValidateStatus(newStatus)
	if err != nil {
		return nil, err
	}

	var assignee *int64
	if status == domain.StatusInProgress {
		assignee = &actor.ID
	}
	update, err := s.requests.UpdateStatus(ctx, id, status, assignee)
	if err != nil {
		return nil, notFound(err, "service request", id)
	}

	change := &StatusChange{
		Old:          update.PreviousStatus,
		New:          update.Request.Status,
		AutoAssigned: update.PreviousAssignee == nil && update.Request.AssignedTo != nil,
		Request:      update.Request,
	}

	if change.Old != change.New {
		s.recordChange(ctx, actor, id, domain.ChangeTypeStatus,
			map[string]any{"status": change.Old}, map[string]any{"status": change.New})
		s.publishStatusChanged(ctx, actor, id, change.Old, change.New)
	}
	if change.AutoAssigned {
		s.recordChange(ctx, actor, id, domain.ChangeTypeAssignee,
			map[string]any{"assigned_to": nil}, map[string]any{"assigned_to": *update.Request.AssignedTo})
		s.publishAssigned(ctx, actor, id, *update.Request.AssignedTo, true)
	}

	s.logger.Info("request status updated",
		zap.Int64("request_id", id),
		zap.String("old_status", string(change.Old)),
		zap.String("new_status", string(change.New)),
		zap.Int64("actor_id", actor.ID),
		zap.Bool("auto_assigned", change.AutoAssigned))
	return change, nil
}

// Get returns a single request.
func (s *RequestService) Get(ctx context.Context, id int64) (*domain.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "service request", id)
	}
	return req, nil
}

// LookupStatus backs the public status check. found is false for unknown ids.
func (s *RequestService) LookupStatus(ctx context.Context, id int64) (*domain.ServiceRequest, bool, error) {
	req, err := s.requests.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return req, true, nil
}

// List returns one page of requests, newest first.
func (s *RequestService) List(ctx context.Context, filter RequestListFilter) (*RequestPage, error) {
	repoFilter, page, pageSize, err := buildRequestFilter(filter)
	if err != nil {
		return nil, err
	}
	items, err := s.requests.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.requests.Count(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	return &RequestPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// History returns the audit trail of a request.
func (s *RequestService) History(ctx context.Context, actor *domain.User, id int64) ([]domain.RequestHistory, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := s.requests.GetByID(ctx, id); err != nil {
		return nil, notFound(err, "service request", id)
	}
	return s.history.ListByRequest(ctx, id)
}

// Assignees resolves the users assigned to the given requests, keyed by id.
func (s *RequestService) Assignees(ctx context.Context, reqs ...domain.ServiceRequest) (map[int64]*domain.User, error) {
	out := map[int64]*domain.User{}
	for _, req := range reqs {
		if req.AssignedTo == nil {
			continue
		}
		if _, ok := out[*req.AssignedTo]; ok {
			continue
		}
		user, err := s.users.GetByID(ctx, *req.AssignedTo)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[user.ID] = user
	}
	return out, nil
}

func buildRequestFilter(filter RequestListFilter) (repository.RequestFilter, int, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	out := repository.RequestFilter{
		Department: filter.Department,
		Search:     filter.Search,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}
	if filter.Status != "" {
		status, err := ValidateStatus(filter.Status)
		if err != nil {
			return out, 0, 0, err
		}
		out.Status = &status
	}
	if filter.Category != "" {
		category, err := ValidateCategory(filter.Category)
		if err != nil {
			return out, 0, 0, err
		}
		out.Category = &category
	}
	return out, page, pageSize, nil
}

func (s *RequestService) ensureAssignee(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := s.users.GetByID(ctx, *id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("invalid payload", map[string]any{
				"assigned_to": fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *id),
			})
		}
		return err
	}
	return nil
}

func (s *RequestService) recordChange(ctx context.Context, actor *domain.User, requestID int64, changeType domain.ChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.RequestHistory{
		RequestID:   requestID,
		ChangedByID: &actor.ID,
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record request history",
			zap.Int64("request_id", requestID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}

func (s *RequestService) publishStatusChanged(ctx context.Context, actor *domain.User, id int64, oldStatus, newStatus domain.RequestStatus) {
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestStatusChanged,
		RequestID: id,
		Actor:     actorFor(actor),
		Payload:   events.RequestStatusChangedPayload{OldStatus: oldStatus, NewStatus: newStatus},
	})
}

func (s *RequestService) publishAssigned(ctx context.Context, actor *domain.User, id, assignee int64, automatic bool) {
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestAssigned,
		RequestID: id,
		Actor:     actorFor(actor),
		Payload:   events.RequestAssignedPayload{AssigneeID: assignee, Automatic: automatic},
	})
}

func (s *RequestService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, event)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func actorFor(user *domain.User) events.Actor {
	if user == nil {
		return events.Actor{Type: domain.SubjectTypeUser}
	}
	id := user.ID
	return events.Actor{Type: domain.SubjectFor(user), UserID: &id}
}

func requireStaff(actor *domain.User) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsStaff {
		return apperrors.NewForbidden("staff access required")
	}
	return nil
}

func notFound(err error, resource string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}

func pick(v null.String, fallback string) string {
	if v.Valid {
		return v.String
	}
	return fallback
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
