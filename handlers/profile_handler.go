package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/services"
)

type UpdateProfileRequest struct {
	FullName          *string `json:"full_name" validate:"omitempty,min=2,max=255"`
	Email             *string `json:"email" validate:"omitempty,email"`
	ProfilePictureURL *string `json:"profile_picture_url" validate:"omitempty,url"`
}

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.Auth.Profile(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.Auth.UpdateProfile(c.UserContext(), userID, services.ProfileUpdate{
		FullName:          req.FullName,
		Email:             req.Email,
		ProfilePictureURL: req.ProfilePictureURL,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) CheckWhitelist(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ok, err := h.Auth.CheckWhitelist(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"whitelisted": ok})
}
