package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/komunitas/platform/database"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/services"
)

type ActivityRequest struct {
	Title       string    `json:"title" validate:"required,max=255"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
	Location    string    `json:"location" validate:"max=255"`
	Status      *string   `json:"status" validate:"omitempty,oneof=UPCOMING ONGOING COMPLETED"`

	RegistrationFee *int64            `json:"registration_fee" validate:"omitempty,gte=0"`
	TshirtPrices    map[string]*int64 `json:"tshirt_prices"`

	AccommodationName         *string `json:"accommodation_name"`
	AccommodationPriceSharing *int64  `json:"accommodation_price_sharing" validate:"omitempty,gte=0"`
	AccommodationPriceSingle  *int64  `json:"accommodation_price_single" validate:"omitempty,gte=0"`

	CoverURL           *string `json:"cover_url" validate:"omitempty,url"`
	CoverPublicID      *string `json:"cover_public_id"`
	AttachmentURL      *string `json:"attachment_url" validate:"omitempty,url"`
	AttachmentPublicID *string `json:"attachment_public_id"`

	RequiresWhitelist bool `json:"requires_whitelist"`
	Capacity          *int `json:"capacity" validate:"omitempty,gte=0"`
}

func (r ActivityRequest) input() services.ActivityInput {
	in := services.ActivityInput{
		Title:                     r.Title,
		Description:               r.Description,
		StartDate:                 r.StartDate,
		EndDate:                   r.EndDate,
		Location:                  r.Location,
		RegistrationFee:           r.RegistrationFee,
		TshirtPrices:              r.TshirtPrices,
		AccommodationName:         r.AccommodationName,
		AccommodationPriceSharing: r.AccommodationPriceSharing,
		AccommodationPriceSingle:  r.AccommodationPriceSingle,
		CoverURL:                  r.CoverURL,
		CoverPublicID:             r.CoverPublicID,
		AttachmentURL:             r.AttachmentURL,
		AttachmentPublicID:        r.AttachmentPublicID,
		RequiresWhitelist:         r.RequiresWhitelist,
		Capacity:                  r.Capacity,
	}
	if r.Status != nil {
		st := models.ActivityStatus(*r.Status)
		in.Status = &st
	}
	return in
}

type MerchandiseRequest struct {
	Name        string            `json:"name" validate:"required,max=255"`
	Price       int64             `json:"price" validate:"gte=0"`
	Category    string            `json:"category" validate:"max=100"`
	Description string            `json:"description"`
	Images      []models.MediaRef `json:"images" validate:"max=10"`
	WeightGrams int               `json:"weight_grams" validate:"gte=0"`
	IsActive    *bool             `json:"is_active"`
}

func (r MerchandiseRequest) input() services.MerchandiseInput {
	return services.MerchandiseInput{
		Name:        r.Name,
		Price:       r.Price,
		Category:    r.Category,
		Description: r.Description,
		Images:      r.Images,
		WeightGrams: r.WeightGrams,
		IsActive:    r.IsActive,
	}
}

type ShipOrderRequest struct {
	Courier        string `json:"courier" validate:"max=100"`
	TrackingNumber string `json:"tracking_number" validate:"required,max=100"`
}

type WhitelistRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	Name  string `json:"name" validate:"max=255"`
	Note  string `json:"note"`
}

type BulkWhitelistRequest struct {
	Entries []struct {
		Phone string `json:"phone"`
		Name  string `json:"name"`
		Note  string `json:"note"`
	} `json:"entries" validate:"required,min=1,max=1000"`
}

// Activities

func (h *Handler) AdminGetActivity(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	activity, err := h.Catalog.GetActivity(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(activity)
}

func (h *Handler) AdminCreateActivity(c *fiber.Ctx) error {
	var req ActivityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	activity, err := h.Catalog.CreateActivity(c.UserContext(), req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(activity)
}

func (h *Handler) AdminUpdateActivity(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req ActivityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	activity, err := h.Catalog.UpdateActivity(c.UserContext(), id, req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(activity)
}

func (h *Handler) AdminDeleteActivity(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteActivity(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Registrations

func (h *Handler) AdminListRegistrations(c *fiber.Ctx) error {
	var activityID *uuid.UUID
	if raw := c.Params("id"); raw != "" {
		id, err := paramUUID(c, "id")
		if err != nil {
			return err
		}
		activityID = &id
	}
	f := listFilter(c)
	regs, total, err := h.Registrations.ListRegistrations(c.UserContext(), activityID, f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(paged(regs, total, f))
}

func (h *Handler) AdminCancelRegistration(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	reg, err := h.Payments.CancelRegistration(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(reg)
}

// ExportRegistrations writes the participant list of an activity as CSV.
func (h *Handler) ExportRegistrations(c *fiber.Ctx) error {
	activityID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	activity, err := h.Catalog.GetActivity(c.UserContext(), activityID)
	if err != nil {
		return h.fail(c, err)
	}

	f := database.ListFilter{Status: strings.ToUpper(c.Query("status")), Page: 1, Limit: 100}
	var regs []models.ActivityRegistration
	for {
		page, total, err := h.Registrations.ListRegistrations(c.UserContext(), &activityID, f)
		if err != nil {
			return h.fail(c, err)
		}
		regs = append(regs, page...)
		if len(page) == 0 || int64(len(regs)) >= total {
			break
		}
		f.Page++
	}

	b := new(bytes.Buffer)
	w := csv.NewWriter(b)
	headers := []string{"Reference", "Name", "Phone", "T-shirt", "Accommodation", "Room", "Total", "Status", "Paid At"}
	if err := w.Write(headers); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to write CSV header")
	}
	for _, r := range regs {
		room := ""
		if r.RoomType != nil {
			room = string(*r.RoomType)
		}
		paidAt := ""
		if r.PaidAt != nil {
			paidAt = r.PaidAt.Format("2006-01-02 15:04")
		}
		row := []string{
			r.PaymentReference,
			r.User.FullName,
			r.User.Phone,
			string(r.TshirtSize),
			strconv.FormatBool(r.NeedAccommodation),
			room,
			strconv.FormatInt(r.TotalPrice, 10),
			string(r.Status),
			paidAt,
		}
		if err := w.Write(row); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to write CSV row")
		}
	}
	w.Flush()

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"peserta_%s.csv\"", activity.Slug))
	return c.Send(b.Bytes())
}

// Merchandise

func (h *Handler) AdminListMerchandise(c *fiber.Ctx) error {
	items, err := h.Catalog.ListMerchandise(c.UserContext(), c.Query("category"), true)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

func (h *Handler) AdminCreateMerchandise(c *fiber.Ctx) error {
	var req MerchandiseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	item, err := h.Catalog.CreateMerchandise(c.UserContext(), req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *Handler) AdminUpdateMerchandise(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req MerchandiseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	item, err := h.Catalog.UpdateMerchandise(c.UserContext(), id, req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(item)
}

func (h *Handler) AdminDeactivateMerchandise(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeactivateMerchandise(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Merchandise deactivated"})
}

// Orders

func (h *Handler) AdminListOrders(c *fiber.Ctx) error {
	f := listFilter(c)
	orders, total, err := h.Checkout.ListOrders(c.UserContext(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(paged(orders, total, f))
}

func (h *Handler) AdminShipOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req ShipOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	order, err := h.Payments.MarkShipped(c.UserContext(), id, req.Courier, req.TrackingNumber)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(order)
}

func (h *Handler) AdminMarkPickedUp(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Payments.MarkPickedUp(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(order)
}

func (h *Handler) AdminCancelOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Payments.CancelOrder(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(order)
}

// AdminSyncPayment pulls the gateway status of a reference on demand.
func (h *Handler) AdminSyncPayment(c *fiber.Ctx) error {
	res, err := h.Payments.SyncFromGateway(c.UserContext(), c.Params("reference"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// Whitelist

func (h *Handler) AdminListWhitelist(c *fiber.Ctx) error {
	entries, err := h.Whitelist.List(c.UserContext(), c.Query("search"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(entries)
}

func (h *Handler) AdminAddWhitelist(c *fiber.Ctx) error {
	var req WhitelistRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	entry, err := h.Whitelist.Add(c.UserContext(), services.WhitelistEntry{Phone: req.Phone, Name: req.Name, Note: req.Note})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (h *Handler) AdminBulkWhitelist(c *fiber.Ctx) error {
	var req BulkWhitelistRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	entries := make([]services.WhitelistEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, services.WhitelistEntry{Phone: e.Phone, Name: e.Name, Note: e.Note})
	}
	res, err := h.Whitelist.AddBulk(c.UserContext(), entries)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

func (h *Handler) AdminDeleteWhitelist(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Whitelist.Delete(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
