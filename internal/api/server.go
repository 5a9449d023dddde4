// Package api serves the status API: dataset catalogue, extraction
// watermarks, curated rows of past runs and Prometheus metrics.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"natgas-forecast/internal/observability"
	"natgas-forecast/internal/storage"
)

const serviceName = "natgas-forecast"

// Options configures the status API.
type Options struct {
	Watermarks   WatermarkReader
	Curated      storage.CuratedStore // optional
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AccessLog    bool
}

// New builds the Fiber app with every route registered.
func New(opts Options) *fiber.App {
	readTimeout := opts.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(observability.Handler()))

	RegisterRoutes(app, opts.Watermarks, opts.Curated)
	return app
}
