package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/creatorlane/marketplace/internal/api/http/handlers"
	"github.com/creatorlane/marketplace/internal/auth"
	"github.com/creatorlane/marketplace/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Orders         *handlers.OrdersHandler
	Tickets        *handlers.CRMTicketsHandler
	Chat           *handlers.ChatHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/stats", cfg.Health.Stats)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/agent-login", cfg.Auth.AgentLogin)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAnyPrincipal(), cfg.Auth.Me)

	orders := api.Group("/orders", cfg.AuthMiddleware.Handle, auth.RequireAnyPrincipal())
	orders.Get("/", cfg.Orders.ListOrders)
	orders.Get("/:id", cfg.Orders.GetOrder)
	orders.Put("/:id/accept", auth.RequireAccountRole(domain.AccountRoleCreator), cfg.Orders.AcceptOrder)
	orders.Put("/:id/reject", auth.RequireAccountRole(domain.AccountRoleCreator), cfg.Orders.RejectOrder)
	orders.Post("/:id/deliverables", auth.RequireAccountRole(domain.AccountRoleCreator), cfg.Orders.SubmitDeliverables)
	orders.Put("/:id/status", cfg.Orders.UpdateStatus)
	orders.Post("/:id/ticket", cfg.Orders.OpenTicket)

	tickets := api.Group("/crm/tickets", cfg.AuthMiddleware.Handle, auth.RequireAnyPrincipal())
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/messages", cfg.Tickets.ListMessages)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Put("/:id/status", auth.RequireAgent(), cfg.Tickets.UpdateStatus)
	tickets.Put("/:id/priority", auth.RequireAgent(), cfg.Tickets.UpdatePriority)
	tickets.Put("/:id/assign", auth.RequireAgent(), cfg.Tickets.AssignTicket)

	api.Get("/crm/agents", cfg.AuthMiddleware.Handle, auth.RequireAgent(), cfg.Tickets.ListAgents)

	chatGroup := api.Group("/chat", cfg.AuthMiddleware.Handle, auth.RequireAnyPrincipal())
	chatGroup.Get("/token", cfg.Chat.Token)
	chatGroup.Post("/tickets/:id/join", cfg.Chat.Join)
	chatGroup.Post("/tickets/:id/leave", cfg.Chat.Leave)
	chatGroup.Get("/tickets/:id/messages", cfg.Chat.History)
	chatGroup.Get("/channels", cfg.Chat.Channels)
}
