package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/komunitas/platform/database"
	"github.com/komunitas/platform/middleware"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/payments"
	"github.com/komunitas/platform/pricing"
	"github.com/komunitas/platform/services"
	"github.com/komunitas/platform/shipping"
	"github.com/komunitas/platform/utils"
	"github.com/rs/zerolog"
)

type AuthService interface {
	RequestOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*services.LoginResult, error)
	Profile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in services.ProfileUpdate) (*models.User, error)
	CheckWhitelist(ctx context.Context, userID uuid.UUID) (bool, error)
}

type CatalogService interface {
	ListActivities(ctx context.Context, status models.ActivityStatus) ([]models.Activity, error)
	GetActivityBySlug(ctx context.Context, slug string) (*models.Activity, error)
	GetActivity(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	CreateActivity(ctx context.Context, in services.ActivityInput) (*models.Activity, error)
	UpdateActivity(ctx context.Context, id uuid.UUID, in services.ActivityInput) (*models.Activity, error)
	DeleteActivity(ctx context.Context, id uuid.UUID) error
	ListMerchandise(ctx context.Context, category string, includeInactive bool) ([]models.Merchandise, error)
	GetMerchandise(ctx context.Context, id uuid.UUID, includeInactive bool) (*models.Merchandise, error)
	CreateMerchandise(ctx context.Context, in services.MerchandiseInput) (*models.Merchandise, error)
	UpdateMerchandise(ctx context.Context, id uuid.UUID, in services.MerchandiseInput) (*models.Merchandise, error)
	DeactivateMerchandise(ctx context.Context, id uuid.UUID) error
}

type RegistrationService interface {
	Quote(ctx context.Context, activityID uuid.UUID, sel pricing.Selection) (*services.Quote, error)
	RegisterForActivity(ctx context.Context, in services.RegisterInput) (*models.ActivityRegistration, error)
	RetryRegistrationPayment(ctx context.Context, userID, regID uuid.UUID) (*models.ActivityRegistration, error)
	GetUserRegistration(ctx context.Context, userID, regID uuid.UUID) (*models.ActivityRegistration, error)
	ListUserRegistrations(ctx context.Context, userID uuid.UUID) ([]models.ActivityRegistration, error)
	ListRegistrations(ctx context.Context, activityID *uuid.UUID, f database.ListFilter) ([]models.ActivityRegistration, int64, error)
}

type CheckoutService interface {
	CreateOrder(ctx context.Context, in services.CreateOrderInput) (*models.Order, error)
	RetryOrderPayment(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	GetUserOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, f database.ListFilter) ([]models.Order, int64, error)
	QuoteShipping(ctx context.Context, userID, merchandiseID, addressID uuid.UUID, quantity int) ([]shipping.Option, error)
}

type PaymentService interface {
	HandleNotification(ctx context.Context, n *payments.Notification, raw []byte) error
	SyncFromGateway(ctx context.Context, reference string) (*services.SyncResult, error)
	MarkShipped(ctx context.Context, orderID uuid.UUID, courier, trackingNumber string) (*models.Order, error)
	MarkPickedUp(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ConfirmReceived(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CancelRegistration(ctx context.Context, regID uuid.UUID) (*models.ActivityRegistration, error)
}

type AddressService interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Create(ctx context.Context, userID uuid.UUID, in services.AddressInput) (*models.Address, error)
	Update(ctx context.Context, userID, id uuid.UUID, in services.AddressInput) (*models.Address, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) error
}

type WhitelistService interface {
	List(ctx context.Context, search string) ([]models.Whitelist, error)
	Add(ctx context.Context, in services.WhitelistEntry) (*models.Whitelist, error)
	AddBulk(ctx context.Context, in []services.WhitelistEntry) (*services.BulkResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type MediaService interface {
	SignUpload(folder string) (*services.UploadSignature, error)
	Destroy(ctx context.Context, publicID string) error
}

// Handler holds the services the HTTP layer talks to.
type Handler struct {
	Auth          AuthService
	Catalog       CatalogService
	Registrations RegistrationService
	Checkout      CheckoutService
	Payments      PaymentService
	Addresses     AddressService
	Whitelist     WhitelistService
	Media         MediaService

	log zerolog.Logger
}

func New(log zerolog.Logger) *Handler {
	return &Handler{log: log.With().Str("component", "http").Logger()}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := utils.NormalizePhone(fl.Field().String())
		return err == nil
	})
	return v
}

// bind parses the JSON body into req and validates its tags.
func bind(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}
	return id, nil
}

func listFilter(c *fiber.Ctx) database.ListFilter {
	return database.ListFilter{
		Status: strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	}
}

func paged(items interface{}, total int64, f database.ListFilter) fiber.Map {
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	return fiber.Map{"data": items, "total": total, "page": page, "limit": limit}
}

// fail maps service errors onto HTTP statuses. Internal and upstream causes
// are logged and replaced with a generic message.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrStaleStatus):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrUpstream):
		status = fiber.StatusBadGateway
	}

	msg := err.Error()
	switch status {
	case fiber.StatusBadGateway:
		h.log.Warn().Err(err).Str("path", c.Path()).Msg("upstream failure")
		msg = "An external service is unavailable, please try again"
	case fiber.StatusInternalServerError:
		h.log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")
		msg = "Internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// ErrorHandler renders errors that escape a handler, including the
// *fiber.Error values returned by bind and the routing layer.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal server error"
		var e *fiber.Error
		if errors.As(err, &e) {
			code, msg = e.Code, e.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("unhandled error")
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
