package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/komunitas/platform/middleware"
	"github.com/komunitas/platform/models"
)

// GenerateUploadSignature signs a direct browser upload. Members may only
// upload profile pictures.
func (h *Handler) GenerateUploadSignature(c *fiber.Ctx) error {
	folder := c.Query("folder", "profiles")
	if folder != "profiles" && middleware.Role(c) != models.RoleAdmin {
		return fiber.NewError(fiber.StatusForbidden, "Forbidden: Admin access required")
	}
	sig, err := h.Media.SignUpload(folder)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sig)
}

func (h *Handler) DeleteMedia(c *fiber.Ctx) error {
	publicID, err := url.PathUnescape(c.Params("*"))
	if err != nil || publicID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid public id")
	}
	if err := h.Media.Destroy(c.UserContext(), publicID); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
