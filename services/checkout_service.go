package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/komunitas/platform/cache"
	"github.com/komunitas/platform/database"
	"github.com/komunitas/platform/metrics"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/payments"
	"github.com/komunitas/platform/shipping"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

type OrderStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetMerchandise(ctx context.Context, id uuid.UUID) (*models.Merchandise, error)
	GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListOrders(ctx context.Context, f database.ListFilter) ([]models.Order, int64, error)
	SetOrderGateway(ctx context.Context, id uuid.UUID, token, redirectURL string) error
}

type CreateOrderInput struct {
	UserID         uuid.UUID
	MerchandiseID  uuid.UUID
	Quantity       int
	ShippingMethod models.ShippingMethod
	AddressID      *uuid.UUID
	Courier        string
	CourierService string
	ShippingCost   int64
	IdempotencyKey string
}

func (in CreateOrderInput) validate() error {
	if in.Quantity < 1 {
		return validation("quantity must be at least 1")
	}
	switch in.ShippingMethod {
	case models.ShippingPickup:
	case models.ShippingDelivery:
		if in.AddressID == nil || *in.AddressID == uuid.Nil {
			return validation("address is required for delivery")
		}
	default:
		return validation("shipping method must be PICKUP or DELIVERY")
	}
	if in.ShippingCost < 0 {
		return validation("shipping cost cannot be negative")
	}
	return nil
}

// CheckoutService turns a merchandise selection into a PENDING order with a
// hosted payment page.
type CheckoutService struct {
	store        OrderStore
	gateway      payments.Gateway
	rates        shipping.Resolver
	idempotency  cache.Store
	callbacks    payments.Callbacks
	originPostal string
	log          zerolog.Logger
}

func NewCheckoutService(store OrderStore, gateway payments.Gateway, rates shipping.Resolver, idempotency cache.Store, callbacks payments.Callbacks, originPostal string, log zerolog.Logger) *CheckoutService {
	return &CheckoutService{
		store:        store,
		gateway:      gateway,
		rates:        rates,
		idempotency:  idempotency,
		callbacks:    callbacks,
		originPostal: originPostal,
		log:          log.With().Str("service", "checkout").Logger(),
	}
}

// CreateOrder persists a PENDING order and requests a gateway transaction for
// it. When the gateway fails the order is returned together with an
// ErrUpstream error so the caller can retry payment for the same order.
func (s *CheckoutService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if existing, err := s.resume(ctx, in.UserID, in.IdempotencyKey); err != nil || existing != nil {
		return existing, err
	}

	user, err := s.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, lookup(err, "user")
	}
	merch, err := s.store.GetMerchandise(ctx, in.MerchandiseID)
	if err != nil {
		return nil, lookup(err, "merchandise")
	}
	if !merch.IsActive {
		return nil, fmt.Errorf("%w: merchandise is no longer available", ErrConflict)
	}

	order := &models.Order{
		ID:             uuid.New(),
		UserID:         user.ID,
		MerchandiseID:  merch.ID,
		Quantity:       in.Quantity,
		UnitPrice:      merch.Price,
		ShippingMethod: in.ShippingMethod,
		Status:         models.OrderPending,
	}

	if in.ShippingMethod == models.ShippingDelivery {
		address, err := s.store.GetAddress(ctx, *in.AddressID)
		if err != nil {
			return nil, lookup(err, "address")
		}
		if address.UserID != user.ID {
			return nil, fmt.Errorf("%w: address belongs to another user", ErrForbidden)
		}
		order.AddressID = &address.ID
		order.Address = address
		order.ShippingCost = in.ShippingCost
		order.Courier = optional(in.Courier)
		order.CourierService = optional(in.CourierService)
	}

	order.Subtotal = order.UnitPrice * int64(order.Quantity)
	order.Total = order.Subtotal + order.ShippingCost
	order.PaymentReference = payments.Reference(payments.KindOrder, order.ID)

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.remember(ctx, in.UserID, in.IdempotencyKey, order.ID)

	order.User = *user
	order.Merchandise = *merch

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("reference", order.PaymentReference).
		Int64("total", order.Total).
		Msg("order created")

	err = s.requestPayment(ctx, order)
	metrics.RecordCheckout("order", err)
	if err != nil {
		return order, err
	}
	return order, nil
}

// RetryOrderPayment requests a gateway transaction for a PENDING order that
// does not have one yet. Orders that already have a token are returned as is.
func (s *CheckoutService) RetryOrderPayment(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, lookup(err, "order")
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order belongs to another user", ErrForbidden)
	}
	if order.Status != models.OrderPending {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
	}
	if order.SnapToken != nil {
		return order, nil
	}

	err = s.requestPayment(ctx, order)
	metrics.RecordCheckout("order_retry", err)
	return order, err
}

func (s *CheckoutService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

func (s *CheckoutService) GetUserOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, lookup(err, "order")
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order belongs to another user", ErrForbidden)
	}
	return order, nil
}

func (s *CheckoutService) ListOrders(ctx context.Context, f database.ListFilter) ([]models.Order, int64, error) {
	if f.Status != "" && !models.OrderStatus(f.Status).Valid() {
		return nil, 0, validation("unknown order status %q", f.Status)
	}
	return s.store.ListOrders(ctx, f)
}

// QuoteShipping returns courier options for delivering quantity units of a
// merchandise item to one of the user's addresses. An empty list means no
// quote is available.
func (s *CheckoutService) QuoteShipping(ctx context.Context, userID, merchandiseID, addressID uuid.UUID, quantity int) ([]shipping.Option, error) {
	if quantity < 1 {
		return nil, validation("quantity must be at least 1")
	}
	merch, err := s.store.GetMerchandise(ctx, merchandiseID)
	if err != nil {
		return nil, lookup(err, "merchandise")
	}
	address, err := s.store.GetAddress(ctx, addressID)
	if err != nil {
		return nil, lookup(err, "address")
	}
	if address.UserID != userID {
		return nil, fmt.Errorf("%w: address belongs to another user", ErrForbidden)
	}
	if s.originPostal == "" || address.PostalCode == "" {
		return []shipping.Option{}, nil
	}

	options := s.rates.GetOptions(ctx, s.originPostal, address.PostalCode, []shipping.Item{{
		Name:     merch.Name,
		Value:    merch.Price,
		Weight:   merch.ShippingWeight(),
		Quantity: quantity,
	}})
	metrics.RecordShippingLookup(len(options))
	return options, nil
}

func (s *CheckoutService) requestPayment(ctx context.Context, order *models.Order) error {
	items := []payments.Item{{
		ID:       order.MerchandiseID.String(),
		Name:     order.Merchandise.Name,
		Price:    order.UnitPrice,
		Quantity: int32(order.Quantity),
		Category: order.Merchandise.Category,
	}}
	if order.ShippingCost > 0 {
		name := "Ongkos kirim"
		if order.Courier != nil {
			name += " " + strings.ToUpper(*order.Courier)
			if order.CourierService != nil {
				name += " " + strings.ToUpper(*order.CourierService)
			}
		}
		items = append(items, payments.Item{ID: "shipping", Name: name, Price: order.ShippingCost, Quantity: 1})
	}

	customer := customerOf(&order.User)
	if order.Address != nil {
		customer.Address = &payments.CustomerAddress{
			Address:  strings.TrimRight(order.Address.Street+", "+order.Address.District, ", "),
			City:     order.Address.City,
			Postcode: order.Address.PostalCode,
		}
	}

	tx, err := s.gateway.CreateTransaction(payments.TransactionRequest{
		Reference:   order.PaymentReference,
		GrossAmount: order.Total,
		Customer:    customer,
		Items:       items,
		Callbacks:   s.callbacks,
	})
	if err != nil {
		s.log.Error().Err(err).
			Str("order_id", order.ID.String()).
			Str("reference", order.PaymentReference).
			Msg("payment gateway rejected order transaction")
		return fmt.Errorf("%w: could not start payment, retry from your orders page", ErrUpstream)
	}

	if err := s.store.SetOrderGateway(ctx, order.ID, tx.Token, tx.RedirectURL); err != nil {
		return fmt.Errorf("failed to save payment token: %w", err)
	}
	order.SnapToken = &tx.Token
	order.RedirectURL = &tx.RedirectURL
	return nil
}

func (s *CheckoutService) resume(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	if key == "" || s.idempotency == nil {
		return nil, nil
	}
	v, err := s.idempotency.Get(ctx, idempotencyKey("order", userID, key))
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("idempotency lookup failed")
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, nil
	}
	order, err := s.GetUserOrder(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", v).Msg("resuming order for repeated idempotency key")
	if order.Status != models.OrderPending || order.SnapToken != nil {
		return order, nil
	}
	return s.RetryOrderPayment(ctx, userID, id)
}

func (s *CheckoutService) remember(ctx context.Context, userID uuid.UUID, key string, id uuid.UUID) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Set(ctx, idempotencyKey("order", userID, key), id.String(), idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Msg("failed to store idempotency key")
	}
}

// idempotencyKey scopes a client key to its kind and user. The store adds
// its own namespace.
func idempotencyKey(kind string, userID uuid.UUID, key string) string {
	return kind + ":" + userID.String() + ":" + key
}

func customerOf(u *models.User) payments.Customer {
	first, last, _ := strings.Cut(strings.TrimSpace(u.FullName), " ")
	c := payments.Customer{FirstName: first, LastName: last, Phone: u.Phone}
	if u.Email != nil {
		c.Email = *u.Email
	}
	return c
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
