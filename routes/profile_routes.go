package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/handlers"
	"github.com/komunitas/platform/middleware"
)

func ProfileRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	protected := middleware.Protected(opts.JWTSecret)

	profile := api.Group("/profile", protected)
	profile.Get("", h.GetProfile)
	profile.Put("", h.UpdateProfile)

	api.Get("/whitelist/check", protected, h.CheckWhitelist)

	addresses := api.Group("/addresses", protected)
	addresses.Get("", h.ListAddresses)
	addresses.Post("", h.CreateAddress)
	addresses.Put("/:id", h.UpdateAddress)
	addresses.Delete("/:id", h.DeleteAddress)
	addresses.Put("/:id/default", h.SetDefaultAddress)
}
