package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Agents         *handlers.AgentsHandler
	Tickets        *handlers.TicketsHandler
	Notes          *handlers.NotesHandler
	Notifications  *handlers.NotificationsHandler
	Chat           *handlers.ChatHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	api.Post("/auth/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/auth/me", cfg.Auth.Me)
	protected.Post("/auth/password/change", cfg.Auth.ChangePassword)
	protected.Post("/auth/register", auth.RequireAdmin(), cfg.Auth.Register)

	protected.Get("/agents", cfg.Agents.ListAgents)
	protected.Get("/agents/:id", cfg.Agents.GetAgent)
	protected.Patch("/agents/:id", auth.RequireAdmin(), cfg.Agents.UpdateAgent)
	protected.Delete("/agents/:id", auth.RequireAdmin(), cfg.Agents.DeactivateAgent)

	protected.Post("/tickets", cfg.Tickets.CreateTicket)
	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Get("/tickets/:id", cfg.Tickets.GetTicket)
	protected.Patch("/tickets/:id", cfg.Tickets.UpdateTicket)
	protected.Delete("/tickets/:id", auth.RequireAdmin(), cfg.Tickets.DeleteTicket)
	protected.Get("/tickets/:id/activities", cfg.Tickets.ListActivities)

	protected.Post("/tickets/:id/notes", cfg.Notes.AddNote)
	protected.Get("/tickets/:id/notes", cfg.Notes.ListNotes)
	protected.Put("/notes/:id", cfg.Notes.UpdateNote)

	protected.Get("/notifications", cfg.Notifications.List)
	protected.Post("/notifications/read-all", cfg.Notifications.MarkAllRead)
	protected.Post("/notifications/:id/read", cfg.Notifications.MarkRead)

	protected.Get("/chat/conversations", cfg.Chat.ListConversations)
	protected.Post("/chat/conversations/direct", cfg.Chat.OpenDirect)
	protected.Post("/chat/conversations/group", cfg.Chat.CreateGroup)
	protected.Get("/chat/conversations/:id/messages", cfg.Chat.ListMessages)
	protected.Post("/chat/conversations/:id/messages", cfg.Chat.SendMessage)
	protected.Post("/chat/conversations/:id/read", cfg.Chat.MarkRead)
	protected.Get("/chat/presence", cfg.Chat.Presence)
	protected.Post("/chat/presence/heartbeat", cfg.Chat.Heartbeat)

	protected.Get("/stats/me", cfg.Stats.MyStats)
	protected.Get("/stats/agents/:id", cfg.Stats.AgentStats)
	protected.Get("/performance", auth.RequireAdmin(), cfg.Stats.Performance)
}
