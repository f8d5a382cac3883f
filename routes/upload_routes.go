package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/handlers"
	"github.com/komunitas/platform/middleware"
)

func UploadRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	uploads := api.Group("/uploads", middleware.Protected(opts.JWTSecret))
	uploads.Get("/signature", h.GenerateUploadSignature)
}
