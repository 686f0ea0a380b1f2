package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Public         *handlers.PublicHandler
	Requests       *handlers.RequestsHandler
	Departments    *handlers.DepartmentsHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Static segments are registered before :id routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	staffOnly := auth.Enforce(auth.StaffOnly)
	readOrStaffWrite := auth.Enforce(auth.AuthenticatedReadStaffWrite)
	anyone := auth.Enforce(auth.Public)

	app.Get("/metrics", cfg.AuthMiddleware.Handle, staffOnly, cfg.Metrics.Show)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	api.Post("/auth/login", anyone, cfg.Users.Login)

	public := api.Group("/public", anyone)
	public.Post("/submit-request", cfg.Public.SubmitRequest)
	public.Get("/request-status/:id", cfg.Public.RequestStatus)
	public.Get("/departments", cfg.Public.DepartmentChoices)

	requests := api.Group("/requests")
	requests.Get("/stats", staffOnly, cfg.Requests.Stats)
	requests.Get("/export", staffOnly, cfg.Requests.Export)
	requests.Get("/", readOrStaffWrite, cfg.Requests.List)
	requests.Post("/", readOrStaffWrite, cfg.Requests.Create)
	requests.Get("/:id", readOrStaffWrite, cfg.Requests.Get)
	requests.Put("/:id", readOrStaffWrite, cfg.Requests.Update)
	requests.Patch("/:id", readOrStaffWrite, cfg.Requests.Update)
	requests.Post("/:id/update-status", staffOnly, cfg.Requests.UpdateStatus)
	requests.Get("/:id/history", staffOnly, cfg.Requests.History)

	departments := api.Group("/departments")
	departments.Get("/stats", staffOnly, cfg.Departments.Stats)
	departments.Post("/sync-api", staffOnly, cfg.Departments.Sync)
	departments.Get("/sync-api", staffOnly, cfg.Departments.LastSync)
	departments.Get("/", readOrStaffWrite, cfg.Departments.List)
	departments.Post("/", readOrStaffWrite, cfg.Departments.Create)
	departments.Get("/:id", readOrStaffWrite, cfg.Departments.Get)
	departments.Put("/:id", readOrStaffWrite, cfg.Departments.Update)
	departments.Patch("/:id", readOrStaffWrite, cfg.Departments.Update)
	departments.Delete("/:id", readOrStaffWrite, cfg.Departments.Delete)

	api.Get("/users", staffOnly, cfg.Users.List)
}
