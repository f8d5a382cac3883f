package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/handlers"
	"github.com/komunitas/platform/middleware"
)

func AuthRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	byIP := middleware.RateLimit("otp:ip", 20, time.Hour, middleware.KeyByIP, opts.LimiterStorage)
	byPhone := middleware.RateLimit("otp:phone", 5, 15*time.Minute, middleware.KeyByPhone, opts.LimiterStorage)
	verify := middleware.RateLimit("otp:verify", 10, 15*time.Minute, middleware.KeyByPhone, opts.LimiterStorage)

	auth := api.Group("/auth")
	auth.Post("/otp/request", byIP, byPhone, h.RequestOTP)
	auth.Post("/otp/verify", byIP, verify, h.VerifyOTP)
}
