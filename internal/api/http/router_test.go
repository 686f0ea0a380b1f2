package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/directory"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
)

type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context) ([]directory.Entity, error) {
	return nil, &directory.UpstreamError{StatusCode: 503}
}

type testEnv struct {
	app        *fiber.App
	store      *memory.Store
	staffToken string
	userToken  string
	staff      *domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Config{
		App:  config.AppConfig{Name: "helpdesk-test", RequestTimeoutSeconds: 5},
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4},
	}
	store := memory.NewStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(cfg, store.Users())
	staff, err := authService.CreateUser(context.Background(), service.NewUserInput{Username: "agent", Password: "password1", IsStaff: true})
	require.NoError(t, err)
	regular, err := authService.CreateUser(context.Background(), service.NewUserInput{Username: "viewer", Password: "password1"})
	require.NoError(t, err)

	requests := service.NewRequestService(service.RequestDependencies{
		RequestRepo: store.Requests(),
		UserRepo:    store.Users(),
		HistoryRepo: store.History(),
		Dispatcher:  events.NewInMemoryDispatcher(),
		Logger:      logger,
	})
	departments := service.NewDepartmentService(service.DepartmentDependencies{
		DepartmentRepo: store.Departments(),
		Directory:      failingFetcher{},
		Fallback:       []directory.Choice{{Code: "IT", Name: "Information Technology"}},
		Logger:         logger,
	})
	syncService := service.NewDirectorySyncService(service.DirectorySyncDependencies{
		DepartmentRepo: store.Departments(),
		Directory:      failingFetcher{},
		State:          memory.NewSyncState(),
		Logger:         logger,
	})
	stats := service.NewStatsService(store.Requests(), store.Departments())

	app := NewApp(cfg.App, logger, metrics, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk", "test", nil, nil),
		Users:          handlers.NewUsersHandler(authService),
		Public:         handlers.NewPublicHandler(requests, departments),
		Requests:       handlers.NewRequestsHandler(requests, stats, service.NewReportService(requests)),
		Departments:    handlers.NewDepartmentsHandler(departments, syncService, stats),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users()),
	})

	staffToken, _, err := authService.TokenManager().GenerateToken(staff.ID, domain.SubjectTypeStaff)
	require.NoError(t, err)
	userToken, _, err := authService.TokenManager().GenerateToken(regular.ID, domain.SubjectTypeUser)
	require.NoError(t, err)
	return &testEnv{app: app, store: store, staffToken: staffToken, userToken: userToken, staff: staff}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

const aliceBody = `{"requester_name":"Alice","requester_email":"alice@example.com","department":"IT","category":"printer_issue","description":"Printer on floor 3 is jammed"}`

func TestPublicSubmitAndLookup(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, "POST", "/api/public/submit-request", "", aliceBody)
	require.Equal(t, fiber.StatusCreated, status)
	data := body["data"].(map[string]any)
	request := data["request"].(map[string]any)
	assert.Equal(t, "pending", request["status"])
	assert.Equal(t, "Pending", request["status_display"])
	assert.Equal(t, "Printer Issue", request["category_display"])
	assert.NotContains(t, request, "requester_email")
	id := int(request["id"].(float64))

	status, body = env.do(t, "GET", "/api/public/request-status/"+strconv.Itoa(id), "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Alice", body["data"].(map[string]any)["requester_name"])

	status, body = env.do(t, "GET", "/api/public/request-status/9999", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestPublicSubmitRejectsBogusCategory(t *testing.T) {
	env := newTestEnv(t)
	payload := strings.Replace(aliceBody, "printer_issue", "bogus", 1)

	status, body := env.do(t, "POST", "/api/public/submit-request", "", payload)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details["category"], "password_reset")
}

func TestAccessPolicy(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/public/submit-request", "", aliceBody)

	cases := []struct {
		method, path, token string
		want                int
	}{
		{"GET", "/api/requests", "", fiber.StatusUnauthorized},
		{"GET", "/api/requests", env.userToken, fiber.StatusOK},
		{"POST", "/api/requests", env.userToken, fiber.StatusForbidden},
		{"GET", "/api/requests/stats", env.userToken, fiber.StatusForbidden},
		{"GET", "/api/requests/stats", env.staffToken, fiber.StatusOK},
		{"POST", "/api/requests/1/update-status", env.userToken, fiber.StatusForbidden},
		{"GET", "/api/departments/stats", "", fiber.StatusUnauthorized},
		{"GET", "/api/users", env.userToken, fiber.StatusForbidden},
		{"GET", "/api/users", env.staffToken, fiber.StatusOK},
		{"GET", "/metrics", env.userToken, fiber.StatusForbidden},
		{"GET", "/api/requests", "not-a-jwt", fiber.StatusUnauthorized},
		{"GET", "/api/public/departments", "", fiber.StatusOK},
		{"GET", "/api/public/request-status/1", "", fiber.StatusOK},
		{"GET", "/api/public/request-status/1", env.userToken, fiber.StatusOK},
	}
	for _, tc := range cases {
		status, _ := env.do(t, tc.method, tc.path, tc.token, "")
		assert.Equal(t, tc.want, status, "%s %s", tc.method, tc.path)
	}
}

func TestUpdateStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/public/submit-request", "", aliceBody)

	status, body := env.do(t, "POST", "/api/requests/1/update-status", env.staffToken, `{"status":"in_progress"}`)
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Status updated from pending to in_progress", data["message"])
	assert.Equal(t, true, data["auto_assigned"])
	req := data["request"].(map[string]any)
	assert.Equal(t, float64(env.staff.ID), req["assigned_to"])
	assert.Equal(t, "agent", req["assigned_to_details"].(map[string]any)["username"])

	status, body = env.do(t, "POST", "/api/requests/1/update-status", env.staffToken, `{"status":"archived"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, _ = env.do(t, "POST", "/api/requests/77/update-status", env.staffToken, `{"status":"closed"}`)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = env.do(t, "GET", "/api/requests/1/history", env.staffToken, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 2)
}

func TestDepartmentEndpoints(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, "GET", "/api/public/departments", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "fallback", body["data"].(map[string]any)["source"])

	status, _ = env.do(t, "POST", "/api/departments", env.staffToken, `{"name":"IT","code":"IT","manager":"Sam"}`)
	require.Equal(t, fiber.StatusCreated, status)
	status, body = env.do(t, "POST", "/api/departments", env.staffToken, `{"name":"IT","code":"IT2"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	env.do(t, "POST", "/api/public/submit-request", "", aliceBody)
	status, body = env.do(t, "DELETE", "/api/departments/1", env.staffToken, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "DEPARTMENT_IN_USE", errorCode(body))

	status, body = env.do(t, "GET", "/api/departments", env.userToken, "")
	require.Equal(t, fiber.StatusOK, status)
	items := body["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, float64(1), items[0].(map[string]any)["request_count"])

	status, body = env.do(t, "PATCH", "/api/departments/1", env.staffToken, `{"manager":"Kim"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Kim", body["data"].(map[string]any)["manager"])

	status, _ = env.do(t, "POST", "/api/departments", env.staffToken, `{"name":"HR","code":"HR"}`)
	require.Equal(t, fiber.StatusCreated, status)
	status, _ = env.do(t, "DELETE", "/api/departments/2", env.staffToken, "")
	assert.Equal(t, fiber.StatusNoContent, status)

	status, body = env.do(t, "POST", "/api/departments/sync-api", env.staffToken, "")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", errorCode(body))
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, "GET", "/api/nope", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = env.do(t, "GET", "/health/ready", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}
