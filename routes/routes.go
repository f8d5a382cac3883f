package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/handlers"
	"github.com/komunitas/platform/websocket"
)

type Options struct {
	JWTSecret string
	// LimiterStorage backs the OTP rate limiters; nil keeps them in memory.
	LimiterStorage fiber.Storage
	Hub            *websocket.Hub
}

func Setup(app *fiber.App, h *handlers.Handler, opts Options) {
	api := app.Group("/api/v1")

	AuthRoutes(api, h, opts)
	PublicRoutes(api, h)
	PaymentRoutes(api, h)
	ProfileRoutes(api, h, opts)
	ShopRoutes(api, h, opts)
	UploadRoutes(api, h, opts)
	AdminRoutes(api, h, opts)
	if opts.Hub != nil {
		RealtimeRoutes(api, opts)
	}
}
