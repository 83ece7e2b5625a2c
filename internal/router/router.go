package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-rubric-api/internal/config"
	"github.com/noah-isme/gema-rubric-api/internal/handler"
	"github.com/noah-isme/gema-rubric-api/internal/middleware"
	"github.com/noah-isme/gema-rubric-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	RubricHandler          *handler.RubricHandler
	AssessmentDraftHandler *handler.AssessmentDraftHandler
	ActivityHandler        *handler.ActivityHandler
	HealthProbes           []handler.HealthProbe
	JWTMiddleware          fiber.Handler
	SubmitLimiter          fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	v2 := app.Group("/api/v2", jwtMiddleware)

	if deps.RubricHandler != nil {
		rubrics := v2.Group("/rubrics", middleware.Authorize(middleware.AuthOptions{Role: middleware.AuthRoleAssessor}))
		deps.RubricHandler.RegisterAuthoring(rubrics, middleware.Authorize(middleware.AuthOptions{Role: middleware.AuthRoleAuthor}))
		deps.RubricHandler.Register(rubrics)
	}

	if deps.AssessmentDraftHandler != nil {
		drafts := v2.Group("/assessments/drafts", middleware.Authorize(middleware.AuthOptions{Role: middleware.AuthRoleAssessor}))
		deps.AssessmentDraftHandler.Register(drafts)

		var guards []fiber.Handler
		if deps.SubmitLimiter != nil {
			guards = append(guards, deps.SubmitLimiter)
		}
		deps.AssessmentDraftHandler.RegisterSubmit(drafts, guards...)
	}

	if deps.ActivityHandler != nil {
		activity := v2.Group("/activity", middleware.Authorize(middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))
		deps.ActivityHandler.Register(activity)
	}
}
