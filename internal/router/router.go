package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bilim-edu/grading-api/internal/config"
	"github.com/bilim-edu/grading-api/internal/handler"
	"github.com/bilim-edu/grading-api/internal/middleware"
	"github.com/bilim-edu/grading-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AutogradeHandler *handler.AutogradeHandler
	ReviewHandler    *handler.ReviewHandler
	ActivityHandler  *handler.ActivityHandler
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	admin := app.Group("/api/admin",
		jwtMiddleware,
		middleware.RequireRole("admin", "teacher"),
		middleware.RateLimit("admin", cfg.AdminRateLimit, cfg.AdminRateWindow),
	)

	if deps.AutogradeHandler != nil {
		autogradeGroup := admin.Group("/autograde")
		deps.AutogradeHandler.Register(autogradeGroup)
	}

	if deps.ReviewHandler != nil {
		reviewGroup := admin.Group("/review")
		deps.ReviewHandler.Register(reviewGroup)
	}

	if deps.ActivityHandler != nil {
		activityGroup := admin.Group("/activity")
		deps.ActivityHandler.Register(activityGroup)
	}
}
