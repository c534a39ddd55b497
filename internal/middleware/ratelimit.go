package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/localnerve/retroboard/internal/types"
)

// RateLimit allows max requests per client IP within window.
// Requests over the limit fail with 429 RATE_LIMITED.
func RateLimit(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return types.NewError(http.StatusTooManyRequests, types.TypeRateLimited, "too many requests, retry in %s", window)
		},
	})
}

// LoginRateLimit limits sign in and sign up attempts per minute
func LoginRateLimit(perMinute int) fiber.Handler {
	return RateLimit(perMinute, time.Minute)
}

// ExportRateLimit limits exports per 20 minutes
func ExportRateLimit(max int) fiber.Handler {
	return RateLimit(max, 20*time.Minute)
}
