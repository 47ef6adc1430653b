package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/http/handlers"
	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Rules          *handlers.RulesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/customer/login", cfg.Auth.CustomerLogin)
	authGroup.Post("/staff/login", cfg.Auth.StaffLogin)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireCustomer())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/replies", cfg.Tickets.AddReply)

	staff := api.Group("/staff/tickets", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	staff.Get("", cfg.StaffTickets.ListTickets)
	staff.Get("/:id", cfg.StaffTickets.GetTicket)
	staff.Post("/:id/assign", cfg.StaffTickets.AssignTicket)
	staff.Post("/:id/transfer", cfg.StaffTickets.TransferTicket)
	staff.Post("/:id/unassign", cfg.StaffTickets.UnassignTicket)
	staff.Post("/:id/complete", cfg.StaffTickets.CompleteTicket)
	staff.Post("/:id/close", cfg.StaffTickets.CloseTicket)
	staff.Post("/:id/escalate", cfg.StaffTickets.EscalateTicket)
	staff.Post("/:id/replies", cfg.StaffTickets.AddReply)

	admin := api.Group("/admin/loyalty-rules", cfg.AuthMiddleware.Handle, auth.RequireStaffRole(domain.StaffRoleAdmin))
	admin.Get("", cfg.Rules.ListRules)
	admin.Get("/resolve", cfg.Rules.ResolveLevel)
	admin.Get("/:id", cfg.Rules.GetRule)
	admin.Post("", cfg.Rules.CreateRule)
	admin.Put("/:id", cfg.Rules.UpdateRule)
	admin.Post("/:id/toggle", cfg.Rules.ToggleRule)
	admin.Delete("/:id", cfg.Rules.RemoveRule)
}
