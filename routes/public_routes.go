package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/handlers"
)

func PublicRoutes(api fiber.Router, h *handlers.Handler) {
	activities := api.Group("/activities")
	activities.Get("", h.ListActivities)
	activities.Get("/:slug", h.GetActivityBySlug)
	activities.Post("/:id/quote", h.QuoteActivity)

	merchandise := api.Group("/merchandise")
	merchandise.Get("", h.ListMerchandise)
	merchandise.Get("/:id", h.GetMerchandise)
}
