package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/handlers"
)

func PaymentRoutes(api fiber.Router, h *handlers.Handler) {
	payments := api.Group("/payments")
	payments.Post("/midtrans/notification", h.MidtransNotification)
	payments.Get("/finish", h.PaymentFinish)
}
