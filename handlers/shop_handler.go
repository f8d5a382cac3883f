package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/services"
)

type CreateOrderRequest struct {
	MerchandiseID  string `json:"merchandise_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity" validate:"required,gte=1,lte=100"`
	ShippingMethod string `json:"shipping_method" validate:"required,oneof=PICKUP DELIVERY"`
	AddressID      string `json:"address_id" validate:"omitempty,uuid"`
	Courier        string `json:"courier" validate:"max=100"`
	CourierService string `json:"courier_service" validate:"max=100"`
	ShippingCost   int64  `json:"shipping_cost" validate:"gte=0"`
}

type ShippingRatesRequest struct {
	MerchandiseID string `json:"merchandise_id" validate:"required,uuid"`
	Quantity      int    `json:"quantity" validate:"required,gte=1,lte=100"`
	AddressID     string `json:"address_id" validate:"required,uuid"`
}

func (h *Handler) ListMerchandise(c *fiber.Ctx) error {
	items, err := h.Catalog.ListMerchandise(c.UserContext(), c.Query("category"), false)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

func (h *Handler) GetMerchandise(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	item, err := h.Catalog.GetMerchandise(c.UserContext(), id, false)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(item)
}

func (h *Handler) ShippingRates(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req ShippingRatesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	options, err := h.Checkout.QuoteShipping(c.UserContext(), userID,
		uuid.MustParse(req.MerchandiseID), uuid.MustParse(req.AddressID), req.Quantity)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"options": options})
}

func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	in := services.CreateOrderInput{
		UserID:         userID,
		MerchandiseID:  uuid.MustParse(req.MerchandiseID),
		Quantity:       req.Quantity,
		ShippingMethod: models.ShippingMethod(strings.ToUpper(req.ShippingMethod)),
		Courier:        req.Courier,
		CourierService: req.CourierService,
		ShippingCost:   req.ShippingCost,
		IdempotencyKey: c.Get("Idempotency-Key"),
	}
	if req.AddressID != "" {
		id := uuid.MustParse(req.AddressID)
		in.AddressID = &id
	}

	order, err := h.Checkout.CreateOrder(c.UserContext(), in)
	if err != nil {
		if order != nil && errors.Is(err, services.ErrUpstream) {
			return pendingWithoutPayment(c, "order", order)
		}
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *Handler) ListMyOrders(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	orders, err := h.Checkout.ListUserOrders(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) GetMyOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Checkout.GetUserOrder(c.UserContext(), userID, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(order)
}

func (h *Handler) RetryOrderPayment(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Checkout.RetryOrderPayment(c.UserContext(), userID, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(order)
}

// ConfirmReceived completes a shipped order on the buyer's word.
func (h *Handler) ConfirmReceived(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Payments.ConfirmReceived(c.UserContext(), userID, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(order)
}
