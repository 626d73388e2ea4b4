package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/cache"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	Categories     *handlers.CategoriesHandler
	AuthMiddleware *auth.AuthMiddleware
	ResponseCache  *cache.ResponseCache
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	cached := cfg.ResponseCache.Middleware()
	app.Get("/categories", cached, cfg.Categories.ListActive)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Post("/:id/messages/:messageID/read", cfg.Tickets.MarkMessageRead)
	tickets.Post("/:id/read", cfg.Tickets.MarkThreadRead)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	admin.Get("/tickets", cfg.AdminTickets.ListTickets)
	admin.Get("/tickets/:id", cfg.AdminTickets.GetTicket)
	admin.Patch("/tickets/:id/status", cfg.AdminTickets.ChangeStatus)
	admin.Patch("/tickets/:id/assignee", cfg.AdminTickets.Assign)
	admin.Post("/tickets/:id/messages", cfg.AdminTickets.AddMessage)
	admin.Post("/tickets/:id/messages/:messageID/read", cfg.AdminTickets.MarkMessageRead)
	admin.Post("/tickets/:id/read", cfg.AdminTickets.MarkThreadRead)
	admin.Delete("/tickets/:id", cfg.AdminTickets.DeleteTicket)
	admin.Get("/tickets/:id/audit", cfg.AdminTickets.ListAudit)

	admin.Get("/categories", cached, cfg.Categories.List)
	admin.Post("/categories", cfg.Categories.Create)
	admin.Patch("/categories/:id", cfg.Categories.Update)
	admin.Delete("/categories/:id", cfg.Categories.Delete)
}
