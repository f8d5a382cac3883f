package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/pricing"
	"github.com/komunitas/platform/services"
)

type SelectionRequest struct {
	TshirtSize        string  `json:"tshirt_size" validate:"required"`
	NeedAccommodation bool    `json:"need_accommodation"`
	RoomType          *string `json:"room_type" validate:"omitempty,oneof=sharing single"`
}

func (r SelectionRequest) selection() pricing.Selection {
	sel := pricing.Selection{
		TshirtSize:        pricing.Size(strings.ToUpper(strings.TrimSpace(r.TshirtSize))),
		NeedAccommodation: r.NeedAccommodation,
	}
	if r.RoomType != nil {
		rt := pricing.RoomType(*r.RoomType)
		sel.RoomType = &rt
	}
	return sel
}

func (h *Handler) ListActivities(c *fiber.Ctx) error {
	status := models.ActivityStatus(strings.ToUpper(c.Query("status")))
	activities, err := h.Catalog.ListActivities(c.UserContext(), status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(activities)
}

func (h *Handler) GetActivityBySlug(c *fiber.Ctx) error {
	activity, err := h.Catalog.GetActivityBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(activity)
}

// QuoteActivity prices a selection without creating anything. The body is
// not validated: a missing or unknown size quotes the remaining components.
func (h *Handler) QuoteActivity(c *fiber.Ctx) error {
	activityID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req SelectionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
		}
	}
	quote, err := h.Registrations.Quote(c.UserContext(), activityID, req.selection())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(quote)
}

func (h *Handler) RegisterForActivity(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	activityID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req SelectionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	reg, err := h.Registrations.RegisterForActivity(c.UserContext(), services.RegisterInput{
		UserID:         userID,
		ActivityID:     activityID,
		Selection:      req.selection(),
		IdempotencyKey: c.Get("Idempotency-Key"),
	})
	if err != nil {
		if reg != nil && errors.Is(err, services.ErrUpstream) {
			return pendingWithoutPayment(c, "registration", reg)
		}
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reg)
}

func (h *Handler) ListMyRegistrations(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	regs, err := h.Registrations.ListUserRegistrations(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(regs)
}

func (h *Handler) GetMyRegistration(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	reg, err := h.Registrations.GetUserRegistration(c.UserContext(), userID, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(reg)
}

func (h *Handler) RetryRegistrationPayment(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	reg, err := h.Registrations.RetryRegistrationPayment(c.UserContext(), userID, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(reg)
}

// pendingWithoutPayment answers a checkout whose record was stored but whose
// gateway call failed, so the client can retry payment for the same record.
func pendingWithoutPayment(c *fiber.Ctx, key string, record interface{}) error {
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error": "Payment gateway is unavailable, please retry payment",
		key:     record,
	})
}
