package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-desk/internal/api/http/handlers"
	"github.com/spec-kit/grievance-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.AuthMiddleware

	// LoginAttemptsPerMinute limits /auth/login per IP; zero disables it.
	LoginAttemptsPerMinute int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	if cfg.LoginAttemptsPerMinute > 0 {
		authGroup.Post("/login", loginRateLimiter(cfg.LoginAttemptsPerMinute), cfg.Users.Login)
	} else {
		authGroup.Post("/login", cfg.Users.Login)
	}
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Users.Me)

	authenticated := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAnyRole()}

	users := app.Group("/users", authenticated...)
	users.Get("/", cfg.Users.List)

	tickets := app.Group("/tickets", authenticated...)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/grouped", cfg.Tickets.GroupedTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)

	admin := app.Group("/admin", append(authenticated, auth.RequireAdmin())...)
	admin.Get("/stats", cfg.Stats.Stats)
	admin.Get("/metrics", cfg.Stats.Metrics)
}
