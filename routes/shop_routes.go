package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/handlers"
	"github.com/komunitas/platform/middleware"
)

func ShopRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	protected := middleware.Protected(opts.JWTSecret)

	api.Post("/activities/:id/register", protected, h.RegisterForActivity)

	registrations := api.Group("/registrations", protected)
	registrations.Get("", h.ListMyRegistrations)
	registrations.Get("/:id", h.GetMyRegistration)
	registrations.Post("/:id/pay", h.RetryRegistrationPayment)

	api.Post("/shipping/rates", protected, h.ShippingRates)

	orders := api.Group("/orders", protected)
	orders.Post("", h.CreateOrder)
	orders.Get("", h.ListMyOrders)
	orders.Get("/:id", h.GetMyOrder)
	orders.Post("/:id/pay", h.RetryOrderPayment)
	orders.Post("/:id/received", h.ConfirmReceived)
}
