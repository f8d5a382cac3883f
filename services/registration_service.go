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
	"github.com/komunitas/platform/events"
	"github.com/komunitas/platform/metrics"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/payments"
	"github.com/komunitas/platform/pricing"
	"github.com/rs/zerolog"
)

type RegistrationStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetActivity(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	IsWhitelisted(ctx context.Context, phone string) (bool, error)
	CountPaidRegistrations(ctx context.Context, activityID uuid.UUID) (int64, error)
	CreateRegistration(ctx context.Context, reg *models.ActivityRegistration) error
	GetRegistration(ctx context.Context, id uuid.UUID) (*models.ActivityRegistration, error)
	ListRegistrationsByUser(ctx context.Context, userID uuid.UUID) ([]models.ActivityRegistration, error)
	ListRegistrations(ctx context.Context, activityID *uuid.UUID, f database.ListFilter) ([]models.ActivityRegistration, int64, error)
	SetRegistrationGateway(ctx context.Context, id uuid.UUID, token, redirectURL string) error
	TransitionRegistration(ctx context.Context, reg *models.ActivityRegistration, from models.RegistrationStatus) error
}

type RegisterInput struct {
	UserID         uuid.UUID
	ActivityID     uuid.UUID
	Selection      pricing.Selection
	IdempotencyKey string
}

// Quote is a price breakdown plus the advisory seat count for an activity.
type Quote struct {
	pricing.Breakdown
	Capacity  *int  `json:"capacity,omitempty"`
	PaidCount int64 `json:"paid_count"`
}

type RegistrationService struct {
	store       RegistrationStore
	gateway     payments.Gateway
	idempotency cache.Store
	publisher   events.Publisher
	callbacks   payments.Callbacks
	log         zerolog.Logger
	now         func() time.Time
}

func NewRegistrationService(store RegistrationStore, gateway payments.Gateway, idempotency cache.Store, publisher events.Publisher, callbacks payments.Callbacks, log zerolog.Logger) *RegistrationService {
	return &RegistrationService{
		store:       store,
		gateway:     gateway,
		idempotency: idempotency,
		publisher:   publisher,
		callbacks:   callbacks,
		log:         log.With().Str("service", "registration").Logger(),
		now:         time.Now,
	}
}

func validateSelection(sel pricing.Selection) (pricing.Selection, error) {
	sel.TshirtSize = pricing.Size(strings.ToUpper(strings.TrimSpace(string(sel.TshirtSize))))
	if !sel.TshirtSize.Valid() {
		return sel, validation("unknown t-shirt size %q", sel.TshirtSize)
	}
	if sel.NeedAccommodation && sel.RoomType != nil && !sel.RoomType.Valid() {
		return sel, validation("unknown room type %q", *sel.RoomType)
	}
	return pricing.Normalize(sel), nil
}

// quoteSelection cleans a selection for pricing only. Unknown or missing
// sizes price at 0 so a quote always answers.
func quoteSelection(sel pricing.Selection) pricing.Selection {
	sel.TshirtSize = pricing.Size(strings.ToUpper(strings.TrimSpace(string(sel.TshirtSize))))
	return pricing.Normalize(sel)
}

// Quote prices a selection without persisting anything.
func (s *RegistrationService) Quote(ctx context.Context, activityID uuid.UUID, sel pricing.Selection) (*Quote, error) {
	sel = quoteSelection(sel)
	activity, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, lookup(err, "activity")
	}
	paid, err := s.store.CountPaidRegistrations(ctx, activity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}
	return &Quote{
		Breakdown: pricing.Compute(activity.PriceTable(), sel),
		Capacity:  activity.Capacity,
		PaidCount: paid,
	}, nil
}

// RegisterForActivity prices the selection, persists a PENDING registration
// and opens a gateway transaction for it. Free registrations are marked PAID
// without involving the gateway.
func (s *RegistrationService) RegisterForActivity(ctx context.Context, in RegisterInput) (*models.ActivityRegistration, error) {
	sel, err := validateSelection(in.Selection)
	if err != nil {
		return nil, err
	}

	if existing, err := s.resume(ctx, in.UserID, in.IdempotencyKey); err != nil || existing != nil {
		return existing, err
	}

	user, err := s.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, lookup(err, "user")
	}
	activity, err := s.store.GetActivity(ctx, in.ActivityID)
	if err != nil {
		return nil, lookup(err, "activity")
	}

	status := activity.Status
	if !activity.StatusManual {
		status = activity.DeriveStatus(s.now())
	}
	if status == models.ActivityCompleted {
		return nil, fmt.Errorf("%w: activity has already finished", ErrConflict)
	}

	if activity.RequiresWhitelist {
		ok, err := s.store.IsWhitelisted(ctx, user.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to check whitelist: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: phone number is not on the whitelist for this activity", ErrForbidden)
		}
	}

	if activity.Capacity != nil {
		if paid, err := s.store.CountPaidRegistrations(ctx, activity.ID); err == nil && paid >= int64(*activity.Capacity) {
			s.log.Warn().
				Str("activity_id", activity.ID.String()).
				Int64("paid", paid).
				Int("capacity", *activity.Capacity).
				Msg("registration accepted over advisory capacity")
		}
	}

	reg := &models.ActivityRegistration{
		ID:                uuid.New(),
		UserID:            user.ID,
		ActivityID:        activity.ID,
		TshirtSize:        sel.TshirtSize,
		NeedAccommodation: sel.NeedAccommodation,
		RoomType:          sel.RoomType,
		Status:            models.RegistrationPending,
	}
	reg.ApplyBreakdown(pricing.Compute(activity.PriceTable(), sel))
	reg.PaymentReference = payments.Reference(payments.KindRegistration, reg.ID)

	if err := s.store.CreateRegistration(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}
	s.remember(ctx, in.UserID, in.IdempotencyKey, reg.ID)

	reg.User = *user
	reg.Activity = *activity

	s.log.Info().
		Str("registration_id", reg.ID.String()).
		Str("reference", reg.PaymentReference).
		Int64("total", reg.TotalPrice).
		Msg("registration created")

	if reg.TotalPrice == 0 {
		err = s.markFree(ctx, reg)
	} else {
		err = s.requestPayment(ctx, reg)
	}
	metrics.RecordCheckout("registration", err)
	return reg, err
}

// RetryRegistrationPayment requests a gateway transaction for a PENDING
// registration that does not have one yet.
func (s *RegistrationService) RetryRegistrationPayment(ctx context.Context, userID, regID uuid.UUID) (*models.ActivityRegistration, error) {
	reg, err := s.GetUserRegistration(ctx, userID, regID)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationPending {
		return nil, fmt.Errorf("%w: registration is %s", ErrInvalidTransition, reg.Status)
	}
	if reg.SnapToken != nil {
		return reg, nil
	}

	if reg.TotalPrice == 0 {
		err = s.markFree(ctx, reg)
	} else {
		err = s.requestPayment(ctx, reg)
	}
	metrics.RecordCheckout("registration_retry", err)
	return reg, err
}

func (s *RegistrationService) GetUserRegistration(ctx context.Context, userID, regID uuid.UUID) (*models.ActivityRegistration, error) {
	reg, err := s.store.GetRegistration(ctx, regID)
	if err != nil {
		return nil, lookup(err, "registration")
	}
	if reg.UserID != userID {
		return nil, fmt.Errorf("%w: registration belongs to another user", ErrForbidden)
	}
	return reg, nil
}

func (s *RegistrationService) ListUserRegistrations(ctx context.Context, userID uuid.UUID) ([]models.ActivityRegistration, error) {
	return s.store.ListRegistrationsByUser(ctx, userID)
}

func (s *RegistrationService) ListRegistrations(ctx context.Context, activityID *uuid.UUID, f database.ListFilter) ([]models.ActivityRegistration, int64, error) {
	if f.Status != "" && !models.RegistrationStatus(f.Status).Valid() {
		return nil, 0, validation("unknown registration status %q", f.Status)
	}
	return s.store.ListRegistrations(ctx, activityID, f)
}

func (s *RegistrationService) markFree(ctx context.Context, reg *models.ActivityRegistration) error {
	if err := reg.Transition(models.RegistrationPaid); err != nil {
		return err
	}
	now := s.now()
	reg.PaidAt = &now
	if err := s.store.TransitionRegistration(ctx, reg, models.RegistrationPending); err != nil {
		return fmt.Errorf("failed to confirm free registration: %w", err)
	}
	metrics.RecordTransition("registration", string(reg.Status))
	publish(ctx, s.publisher, s.log, registrationEvent(reg, models.RegistrationPending))
	return nil
}

func (s *RegistrationService) requestPayment(ctx context.Context, reg *models.ActivityRegistration) error {
	var items []payments.Item
	add := func(id, name string, price int64) {
		if price > 0 {
			items = append(items, payments.Item{ID: id, Name: name, Price: price, Quantity: 1, Category: "registration"})
		}
	}
	sel := pricing.Normalize(reg.Selection())
	add(string(pricing.KeyRegistrationFee), "Biaya pendaftaran "+reg.Activity.Title, reg.BaseFee)
	add(string(pricing.TshirtKey(sel.TshirtSize)), "Kaos ukuran "+string(sel.TshirtSize), reg.TshirtPrice)
	if sel.NeedAccommodation {
		name := "Penginapan " + string(*sel.RoomType)
		if reg.Activity.AccommodationName != nil {
			name += " " + *reg.Activity.AccommodationName
		}
		add("room_"+string(*sel.RoomType), name, reg.AccommodationPrice)
	}

	tx, err := s.gateway.CreateTransaction(payments.TransactionRequest{
		Reference:   reg.PaymentReference,
		GrossAmount: reg.TotalPrice,
		Customer:    customerOf(&reg.User),
		Items:       items,
		Callbacks:   s.callbacks,
	})
	if err != nil {
		s.log.Error().Err(err).
			Str("registration_id", reg.ID.String()).
			Str("reference", reg.PaymentReference).
			Msg("payment gateway rejected registration transaction")
		return fmt.Errorf("%w: could not start payment, retry from your registrations page", ErrUpstream)
	}

	if err := s.store.SetRegistrationGateway(ctx, reg.ID, tx.Token, tx.RedirectURL); err != nil {
		return fmt.Errorf("failed to save payment token: %w", err)
	}
	reg.SnapToken = &tx.Token
	reg.RedirectURL = &tx.RedirectURL
	return nil
}

func (s *RegistrationService) resume(ctx context.Context, userID uuid.UUID, key string) (*models.ActivityRegistration, error) {
	if key == "" || s.idempotency == nil {
		return nil, nil
	}
	v, err := s.idempotency.Get(ctx, idempotencyKey("registration", userID, key))
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
	reg, err := s.GetUserRegistration(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationPending || reg.SnapToken != nil {
		return reg, nil
	}
	return s.RetryRegistrationPayment(ctx, userID, id)
}

func (s *RegistrationService) remember(ctx context.Context, userID uuid.UUID, key string, id uuid.UUID) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Set(ctx, idempotencyKey("registration", userID, key), id.String(), idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Msg("failed to store idempotency key")
	}
}
