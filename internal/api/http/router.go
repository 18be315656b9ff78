package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Categories     *handlers.CategoriesHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/recent", cfg.Tickets.RecentTickets)
	tickets.Get("/stats", cfg.Tickets.TicketStats)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/assign", cfg.Tickets.AssignTicket)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Get("/:id/history", cfg.Tickets.GetHistory)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	api.Delete("/comments/:id", cfg.Tickets.DeleteComment)

	users := api.Group("/users")
	users.Get("", cfg.Users.ListUsers)
	users.Post("", cfg.Users.ProvisionUser)
	users.Get("/:id", cfg.Users.GetUser)
	users.Put("/:id", cfg.Users.UpdateUser)
	users.Delete("/:id", cfg.Users.DeleteUser)
	users.Get("/:id/tickets", cfg.Users.UserTickets)
	users.Get("/:id/assigned", cfg.Users.UserAssignedTickets)

	categories := api.Group("/categories")
	categories.Get("", cfg.Categories.ListCategories)
	categories.Post("", cfg.Categories.CreateCategory)
	categories.Get("/:id", cfg.Categories.GetCategory)
	categories.Put("/:id", cfg.Categories.UpdateCategory)
	categories.Delete("/:id", cfg.Categories.DeleteCategory)

	notifications := api.Group("/notifications")
	notifications.Get("", cfg.Notifications.ListNotifications)
	notifications.Get("/unread", cfg.Notifications.ListUnreadNotifications)
	notifications.Post("/read-all", cfg.Notifications.MarkAllNotificationsRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkNotificationRead)
}
