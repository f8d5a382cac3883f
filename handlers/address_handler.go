package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/services"
)

type AddressRequest struct {
	RecipientName string `json:"recipient_name" validate:"required,max=255"`
	Phone         string `json:"phone" validate:"required,phone"`
	Street        string `json:"street" validate:"required"`
	District      string `json:"district" validate:"max=100"`
	City          string `json:"city" validate:"required,max=100"`
	Province      string `json:"province" validate:"required,max=100"`
	PostalCode    string `json:"postal_code" validate:"required,len=5,numeric"`
	IsDefault     bool   `json:"is_default"`
}

func (r AddressRequest) input() services.AddressInput {
	return services.AddressInput{
		RecipientName: r.RecipientName,
		Phone:         r.Phone,
		Street:        r.Street,
		District:      r.District,
		City:          r.City,
		Province:      r.Province,
		PostalCode:    r.PostalCode,
		IsDefault:     r.IsDefault,
	}
}

func (h *Handler) ListAddresses(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	addresses, err := h.Addresses.List(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(addresses)
}

func (h *Handler) CreateAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req AddressRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	address, err := h.Addresses.Create(c.UserContext(), userID, req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(address)
}

func (h *Handler) UpdateAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req AddressRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	address, err := h.Addresses.Update(c.UserContext(), userID, id, req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(address)
}

func (h *Handler) DeleteAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Addresses.Delete(c.UserContext(), userID, id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) SetDefaultAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Addresses.SetDefault(c.UserContext(), userID, id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Default address updated"})
}
