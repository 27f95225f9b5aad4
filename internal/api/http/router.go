package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-portal/internal/api/http/handlers"
	"github.com/spec-kit/ops-portal/internal/auth"
	"github.com/spec-kit/ops-portal/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Session        *handlers.SessionHandler
	Tasks          *handlers.TasksHandler
	Events         *handlers.EventsHandler
	Leads          *handlers.LeadsHandler
	Appointments   *handlers.AppointmentsHandler
	AuthMiddleware *auth.Middleware
	AdminToken     string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Session.Register)
	authGroup.Post("/login", cfg.Session.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Session.ChangePassword)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/me", cfg.Session.Me)

	users := protected.Group("/users", auth.RequireRealManager())
	users.Get("", cfg.Session.Users)
	users.Patch("/:userId/role", cfg.Session.SetUserRole)

	tasks := protected.Group("/dispatch/tasks")
	tasks.Post("", auth.RequireRoles(domain.RoleEventCoordinator), cfg.Tasks.CreateTask)
	tasks.Get("", cfg.Tasks.ListTasks)
	tasks.Get("/:id", cfg.Tasks.GetTask)
	tasks.Patch("/:id", cfg.Tasks.PatchTask)
	tasks.Post("/:id/escalate", auth.RequireRoles(domain.RoleEventCoordinator), cfg.Tasks.EscalateTask)

	// Manager-triggered sweep; the scheduler uses the admin route below.
	protected.Post("/dispatch/sweep", auth.RequireRealManager(), cfg.Tasks.Sweep)

	events := protected.Group("/events")
	events.Post("", auth.RequireRoles(domain.RoleEventCoordinator), cfg.Events.CreateEvent)
	events.Get("", cfg.Events.ListEvents)
	events.Get("/:id", cfg.Events.GetEvent)
	events.Post("/:id/assignments", auth.RequireRoles(domain.RoleEventCoordinator), cfg.Events.AddAssignment)
	events.Post("/:id/assignments/respond", cfg.Events.RespondAssignment)
	events.Delete("/:id/assignments/:userId", auth.RequireRoles(domain.RoleEventCoordinator), cfg.Events.RemoveAssignment)

	appointments := protected.Group("/appointments",
		auth.RequireRoles(domain.RoleCloser, domain.RoleDialer, domain.RoleInPersonSetter))
	appointments.Post("", cfg.Appointments.CreateAppointment)
	appointments.Get("", cfg.Appointments.ListAppointments)
	appointments.Get("/:id", cfg.Appointments.GetAppointment)
	appointments.Patch("/:id", auth.RequireRoles(domain.RoleCloser), cfg.Appointments.PatchAppointment)

	leads := protected.Group("/leads")
	leads.Post("", cfg.Leads.CreateLead)
	leads.Get("", cfg.Leads.ListLeads)
	leads.Get("/:id", cfg.Leads.GetLead)
	leads.Patch("/:id", cfg.Leads.PatchLead)
	leads.Post("/:id/activities", cfg.Leads.LogActivity)
	leads.Get("/:id/activities", cfg.Leads.ListActivities)

	// Sessionless scheduler entry point.
	admin := app.Group("/internal", auth.RequireAdminToken(cfg.AdminToken))
	admin.Post("/dispatch/sweep", cfg.Tasks.Sweep)
}
