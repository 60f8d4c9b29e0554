package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-desk/internal/api/http/handlers"
	"github.com/spec-kit/service-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration. A nil AuthMiddleware leaves /api
// open.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Backup         *handlers.BackupHandler
	AuthMiddleware *auth.AuthMiddleware
}

// NewApp creates the fiber app. Immutable copies request values such as route params, so the
// strings handlers pass to the store stay valid after fasthttp reuses its buffers.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{AppName: name, Immutable: true})
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Get)

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.Handle, auth.RequireOperator())
	}

	api.Get("/categories", cfg.Tickets.Categories)

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/print", cfg.Tickets.PrintTicket)
	tickets.Get("/:id/label", cfg.Tickets.PrintLabel)

	backup := api.Group("/backup")
	backup.Get("/export", cfg.Backup.Export)
	backup.Post("/import", cfg.Backup.Import)
	backup.Post("/snapshot", cfg.Backup.Snapshot)
}
