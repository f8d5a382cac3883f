package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type OTPRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req OTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Auth.RequestOTP(c.UserContext(), req.Phone); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Verification code sent"})
}

func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req VerifyOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.Auth.VerifyOTP(c.UserContext(), req.Phone, req.Code)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}
