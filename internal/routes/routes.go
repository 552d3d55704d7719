package routes

import (
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/config"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Handlers bundles everything Setup mounts.
type Handlers struct {
	Report     *handlers.ReportHandler
	Moderation *handlers.ModerationHandler
	Admin      *handlers.AdminHandler
	Auth       *handlers.AuthHandler
	Health     *handlers.HealthHandler
	Events     *handlers.EventsHandler
	Images     *handlers.ImageHandler
}

func Setup(app *fiber.App, cfg *config.Config, authService *services.AuthService, h Handlers) {
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Get("/images/"+cfg.StorageBucket+"/:key", h.Images.Serve)

	api := app.Group("/api")

	api.Get("/health", h.Health.Check)

	// Dev identity provider
	api.Post("/auth/login", h.Auth.Login)

	// Public reports. The stream route is registered before :id.
	api.Post("/reports", h.Report.CreateReport)
	api.Get("/reports", h.Report.ListReports)
	api.Get("/reports/stream", h.Events.Stream)
	api.Get("/reports/:id", h.Report.GetReport)

	// Moderation: the service verifies the bearer token itself.
	api.Patch("/reports/:id/solve", h.Moderation.SetSolved)

	// Admin dashboard (JWT + admin allowlist)
	admin := api.Group("/admin", middleware.JWTProtected(authService.Keys()), middleware.AdminRequired(authService))
	admin.Get("/reports", h.Admin.ListReports)
}
