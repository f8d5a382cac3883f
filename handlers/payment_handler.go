package handlers

import (
	"errors"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/payments"
	"github.com/komunitas/platform/services"
)

// MidtransNotification receives the gateway's HTTP notification. Anything the
// gateway should not retry is answered with 200.
func (h *Handler) MidtransNotification(c *fiber.Ctx) error {
	raw := append([]byte(nil), c.Body()...)
	var n payments.Notification
	if err := sonic.Unmarshal(raw, &n); err != nil || n.OrderID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse notification payload")
	}

	err := h.Payments.HandleNotification(c.UserContext(), &n, raw)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"status": "ok"})
	case errors.Is(err, services.ErrNotFound):
		h.log.Warn().Str("reference", n.OrderID).Msg("notification for unknown record acknowledged")
		return c.JSON(fiber.Map{"status": "ignored"})
	case errors.Is(err, services.ErrStaleStatus):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Status changed concurrently, retry"})
	default:
		return h.fail(c, err)
	}
}

// PaymentFinish is hit by the frontend after the hosted payment page
// redirects back; it pulls the authoritative status from the gateway.
func (h *Handler) PaymentFinish(c *fiber.Ctx) error {
	ref := c.Query("order_id")
	if ref == "" {
		return fiber.NewError(fiber.StatusBadRequest, "order_id is required")
	}
	res, err := h.Payments.SyncFromGateway(c.UserContext(), ref)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}
