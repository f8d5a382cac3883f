package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/middleware"
	"github.com/komunitas/platform/websocket"
)

// RealtimeRoutes serves status pushes. Browsers cannot set headers on a
// websocket handshake, so the token travels in the query string.
func RealtimeRoutes(api fiber.Router, opts Options) {
	api.Get("/ws", middleware.Protected(opts.JWTSecret, "query:token"), websocket.Upgrade, opts.Hub.Handler())
}
