package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/handlers"
	"github.com/komunitas/platform/middleware"
)

func AdminRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	admin := api.Group("/admin", middleware.Protected(opts.JWTSecret), middleware.AdminRequired())

	activities := admin.Group("/activities")
	activities.Post("", h.AdminCreateActivity)
	activities.Get("/:id", h.AdminGetActivity)
	activities.Put("/:id", h.AdminUpdateActivity)
	activities.Delete("/:id", h.AdminDeleteActivity)
	activities.Get("/:id/registrations", h.AdminListRegistrations)
	activities.Get("/:id/registrations/export", h.ExportRegistrations)

	registrations := admin.Group("/registrations")
	registrations.Get("", h.AdminListRegistrations)
	registrations.Post("/:id/cancel", h.AdminCancelRegistration)

	merchandise := admin.Group("/merchandise")
	merchandise.Get("", h.AdminListMerchandise)
	merchandise.Post("", h.AdminCreateMerchandise)
	merchandise.Put("/:id", h.AdminUpdateMerchandise)
	merchandise.Delete("/:id", h.AdminDeactivateMerchandise)

	orders := admin.Group("/orders")
	orders.Get("", h.AdminListOrders)
	orders.Post("/:id/ship", h.AdminShipOrder)
	orders.Post("/:id/picked-up", h.AdminMarkPickedUp)
	orders.Post("/:id/cancel", h.AdminCancelOrder)

	admin.Post("/payments/:reference/sync", h.AdminSyncPayment)

	whitelist := admin.Group("/whitelist")
	whitelist.Get("", h.AdminListWhitelist)
	whitelist.Post("", h.AdminAddWhitelist)
	whitelist.Post("/bulk", h.AdminBulkWhitelist)
	whitelist.Delete("/:id", h.AdminDeleteWhitelist)

	admin.Delete("/media/*", h.DeleteMedia)
}
