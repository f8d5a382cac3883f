package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/komunitas/platform/utils"
)

// RateLimit is one limiter instance; build it once per route class and share
// it. A nil storage keeps counters in process memory.
func RateLimit(prefix string, max int, window time.Duration, key func(*fiber.Ctx) string, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return prefix + ":" + key(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later",
			})
		},
	})
}

func KeyByIP(c *fiber.Ctx) string {
	return c.IP()
}

// KeyByPhone keys on the normalized "phone" field of a JSON body so that
// 0812…, +62812… and 62812… share one bucket.
func KeyByPhone(c *fiber.Ctx) string {
	var body struct {
		Phone string `json:"phone"`
	}
	if err := c.BodyParser(&body); err != nil || body.Phone == "" {
		return "ip:" + c.IP()
	}
	if phone, err := utils.NormalizePhone(body.Phone); err == nil {
		return phone
	}
	return body.Phone
}
