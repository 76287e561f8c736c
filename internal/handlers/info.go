package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	u "github.com/ttracx/vibe-qr-api/internal/utils"
)

// HandleHealth reports service liveness.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "vibe-qr-api",
		"version": ServiceVersion,
	})
}

// HandleInfo describes the API surface and rate-limit policy.
func HandleInfo(c *fiber.Ctx) error {
	cfg := u.GetConfig()
	return c.JSON(fiber.Map{
		"name":    "Vibe QR API",
		"version": ServiceVersion,
		"endpoints": fiber.Map{
			"POST /generate":     "Generate QR code as base64 PNG",
			"POST /generate-svg": "Generate QR code as SVG",
			"POST /bulk":         "Generate up to 50 QR codes in one call",
			"GET /health":        "Health check",
		},
		"rate_limits": fiber.Map{
			"free": fiber.Map{
				"requests": cfg.RateLimiter.FreeTierLimit,
				"window":   (time.Duration(cfg.RateLimiter.IntervalSecs) * time.Second).String(),
			},
			"pro": "Unlimited (requires X-API-Key header)",
		},
	})
}
