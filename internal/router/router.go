package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/handout-api/internal/config"
	"github.com/noah-isme/handout-api/internal/handler"
	"github.com/noah-isme/handout-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TelemetryHandler *handler.TelemetryHandler
	ExerciseHandler  *handler.ExerciseHandler
	CourseHandler    *handler.CourseHandler
	DashboardHandler *handler.DashboardHandler
	LiveFeedHandler  *handler.LiveFeedHandler
	HealthProbes     map[string]handler.HealthProbe
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := api.Group("", jwtMiddleware)

	if deps.TelemetryHandler != nil {
		deps.TelemetryHandler.Register(protected)
	}
	if deps.ExerciseHandler != nil {
		deps.ExerciseHandler.Register(protected)
	}
	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(protected)
	}
	if deps.LiveFeedHandler != nil {
		deps.LiveFeedHandler.Register(protected)
	}
	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(protected)
	}
}
