package app

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/redis/go-redis/v9"

	"github.com/ttracx/vibe-qr-api/internal/handlers"
	"github.com/ttracx/vibe-qr-api/internal/ratelimit"
	u "github.com/ttracx/vibe-qr-api/internal/utils"
)

// SetupApp creates and configures a new Fiber app instance
func SetupApp(cfg u.Config, rdb *redis.Client, store fiber.Storage) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			u.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	RegisterMiddleware(app, cfg)
	RegisterRoutes(app, cfg, rdb, store)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts all route handlers to the app
func RegisterRoutes(app *fiber.App, cfg u.Config, rdb *redis.Client, store fiber.Storage) {
	window := time.Duration(cfg.RateLimiter.IntervalSecs) * time.Second
	limiter := ratelimit.New(store, cfg.RateLimiter.FreeTierLimit, window)

	// One shared service instance so all endpoints share the limiter and cache.
	svc := handlers.NewQRService(cfg, rdb, limiter)

	app.Post("/generate", svc.HandleGenerate)
	app.Post("/generate-svg", svc.HandleGenerateSVG)
	app.Post("/bulk", svc.HandleBulk)

	app.Get("/health", handlers.HandleHealth)
	app.Get("/", handlers.HandleInfo)

	app.Get("/monitor", monitor.New())
}
