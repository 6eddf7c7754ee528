// Package router wires the fiber app: middlewares, routes and the error handler.
package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/seasonal/internal/config"
	"github.com/soltixdb/seasonal/internal/handlers"
	"github.com/soltixdb/seasonal/internal/logging"
	"github.com/soltixdb/seasonal/internal/metrics"
	"github.com/soltixdb/seasonal/internal/middleware"
	"github.com/soltixdb/seasonal/internal/queue"
)

// Setup configures all routes and middlewares. publisher and recorder may be nil.
func Setup(app *fiber.App, logger *logging.Logger, analyzer handlers.Analyzer,
	publisher queue.Publisher, recorder *metrics.Recorder, cfg *config.Config,
) *handlers.Handler {
	opts := handlers.Options{
		RequestTimeout: cfg.Server.WriteTimeout,
		QueueType:      cfg.Queue.Type,
		Worker:         cfg.Worker.Enabled,
	}
	if publisher != nil {
		opts.Publisher = publisher
		opts.JobsSubject = cfg.Worker.JobsSubject
	}
	h := handlers.New(logger, analyzer, opts)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, logging.DefaultMiddlewareConfig()))
	if cfg.Metrics.Enabled && recorder != nil {
		app.Use(recorder.FiberMiddleware())
		app.Get(cfg.Metrics.Path, recorder.Handler())
	}

	// Health check (no auth required)
	app.Get("/health", h.Health)

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", middleware.APIKeyAuth(logger, cfg.Auth))

	v1.Post("/analyze", h.Analyze)
	v1.Get("/analyze/defaults", h.Defaults)
	v1.Post("/jobs", h.SubmitJob)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, analyzer handlers.Analyzer,
	publisher queue.Publisher, recorder *metrics.Recorder, cfg *config.Config,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Seasonal Analyzer",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		BodyLimit:             cfg.Server.BodyLimit,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, analyzer, publisher, recorder, cfg)

	return app
}
