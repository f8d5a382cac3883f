package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/komunitas/platform/events"
	"github.com/komunitas/platform/metrics"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/payments"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

type PaymentStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetRegistration(ctx context.Context, id uuid.UUID) (*models.ActivityRegistration, error)
	TransitionOrder(ctx context.Context, order *models.Order, from models.OrderStatus) error
	TransitionRegistration(ctx context.Context, reg *models.ActivityRegistration, from models.RegistrationStatus) error
	SavePaymentNotification(ctx context.Context, n *models.PaymentNotification) error
}

// SyncResult reports the state of a record after a gateway status check.
type SyncResult struct {
	Kind    payments.ReferenceKind `json:"kind"`
	ID      uuid.UUID              `json:"id"`
	Status  string                 `json:"status"`
	Outcome payments.Outcome       `json:"outcome"`
}

// PaymentService applies gateway outcomes and admin actions to orders and
// registrations. Every persisted transition is compare-and-set on the status
// it was computed from.
type PaymentService struct {
	store     PaymentStore
	gateway   payments.Gateway
	publisher events.Publisher
	serverKey string
	log       zerolog.Logger
	now       func() time.Time
}

func NewPaymentService(store PaymentStore, gateway payments.Gateway, publisher events.Publisher, serverKey string, log zerolog.Logger) *PaymentService {
	return &PaymentService{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		serverKey: serverKey,
		log:       log.With().Str("service", "payment").Logger(),
		now:       time.Now,
	}
}

// HandleNotification verifies and applies a gateway notification. Duplicate
// and out of order notifications are recorded and acknowledged without
// changing state.
func (s *PaymentService) HandleNotification(ctx context.Context, n *payments.Notification, raw []byte) error {
	if !n.Verify(s.serverKey) {
		s.log.Warn().Str("reference", n.OrderID).Msg("notification signature mismatch")
		return fmt.Errorf("%w: invalid signature", ErrUnauthorized)
	}

	record := &models.PaymentNotification{
		Reference:         n.OrderID,
		TransactionStatus: n.TransactionStatus,
		FraudStatus:       n.FraudStatus,
		Payload:           datatypes.JSON(raw),
	}

	res, err := s.apply(ctx, n.OrderID, n.Outcome(), n.TransactionID)
	switch {
	case err != nil:
		record.Result = models.NotificationFailed
		msg := err.Error()
		record.Error = &msg
	case res.changed:
		record.Result = models.NotificationProcessed
	default:
		record.Result = models.NotificationIgnored
	}

	if saveErr := s.store.SavePaymentNotification(ctx, record); saveErr != nil {
		s.log.Error().Err(saveErr).Str("reference", n.OrderID).Msg("failed to store payment notification")
	}
	return err
}

// SyncFromGateway asks the gateway for the authoritative status of reference
// and applies it.
func (s *PaymentService) SyncFromGateway(ctx context.Context, reference string) (*SyncResult, error) {
	if _, _, err := payments.ParseReference(reference); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	status, err := s.gateway.CheckStatus(reference)
	if errors.Is(err, payments.ErrTransactionNotFound) {
		return nil, fmt.Errorf("%w: no gateway transaction for %s", ErrNotFound, reference)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("gateway status check failed")
		return nil, fmt.Errorf("%w: could not reach payment gateway", ErrUpstream)
	}

	res, err := s.apply(ctx, reference, status.Outcome(), status.TransactionID)
	if err != nil {
		return nil, err
	}
	res.SyncResult.Outcome = status.Outcome()
	return &res.SyncResult, nil
}

type applyResult struct {
	SyncResult
	changed bool
}

func (s *PaymentService) apply(ctx context.Context, reference string, outcome payments.Outcome, transactionID string) (applyResult, error) {
	kind, id, err := payments.ParseReference(reference)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("ignoring notification for unknown reference")
		return applyResult{}, nil
	}

	log := s.log.With().Str("reference", reference).Str("outcome", string(outcome)).Logger()
	switch kind {
	case payments.KindOrder:
		return s.applyOrder(ctx, id, outcome, transactionID, log)
	default:
		return s.applyRegistration(ctx, id, outcome, transactionID, log)
	}
}

func orderTarget(o payments.Outcome) (models.OrderStatus, bool) {
	switch o {
	case payments.OutcomePaid:
		return models.OrderPaid, true
	case payments.OutcomeFailed, payments.OutcomeCancelled:
		return models.OrderCancelled, true
	}
	return "", false
}

func registrationTarget(o payments.Outcome) (models.RegistrationStatus, bool) {
	switch o {
	case payments.OutcomePaid:
		return models.RegistrationPaid, true
	case payments.OutcomeFailed:
		return models.RegistrationFailed, true
	case payments.OutcomeCancelled:
		return models.RegistrationCancelled, true
	}
	return "", false
}

func (s *PaymentService) applyOrder(ctx context.Context, id uuid.UUID, outcome payments.Outcome, transactionID string, log zerolog.Logger) (applyResult, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return applyResult{}, lookup(err, "order")
	}
	res := applyResult{SyncResult: SyncResult{Kind: payments.KindOrder, ID: order.ID, Status: string(order.Status)}}

	target, ok := orderTarget(outcome)
	if !ok || order.Status == target {
		return res, nil
	}
	if !order.CanTransition(target) {
		log.Warn().Str("status", string(order.Status)).Str("target", string(target)).
			Msg("gateway outcome does not apply to order, acknowledged without change")
		return res, nil
	}

	from := order.Status
	_ = order.Transition(target)
	if target == models.OrderPaid {
		now := s.now()
		order.PaidAt = &now
	}
	if transactionID != "" {
		order.GatewayTransactionID = &transactionID
	}
	if err := s.store.TransitionOrder(ctx, order, from); err != nil {
		return res, err
	}

	log.Info().Str("order_id", order.ID.String()).Str("from", string(from)).Str("status", string(order.Status)).Msg("order status updated")
	s.afterOrderTransition(ctx, order, from)
	res.Status = string(order.Status)
	res.changed = true
	return res, nil
}

func (s *PaymentService) applyRegistration(ctx context.Context, id uuid.UUID, outcome payments.Outcome, transactionID string, log zerolog.Logger) (applyResult, error) {
	reg, err := s.store.GetRegistration(ctx, id)
	if err != nil {
		return applyResult{}, lookup(err, "registration")
	}
	res := applyResult{SyncResult: SyncResult{Kind: payments.KindRegistration, ID: reg.ID, Status: string(reg.Status)}}

	target, ok := registrationTarget(outcome)
	if !ok || reg.Status == target {
		return res, nil
	}
	if !reg.Status.CanTransition(target) {
		log.Warn().Str("status", string(reg.Status)).Str("target", string(target)).
			Msg("gateway outcome does not apply to registration, acknowledged without change")
		return res, nil
	}

	from := reg.Status
	_ = reg.Transition(target)
	if target == models.RegistrationPaid {
		now := s.now()
		reg.PaidAt = &now
	}
	if transactionID != "" {
		reg.GatewayTransactionID = &transactionID
	}
	if err := s.store.TransitionRegistration(ctx, reg, from); err != nil {
		return res, err
	}

	log.Info().Str("registration_id", reg.ID.String()).Str("from", string(from)).Str("status", string(reg.Status)).Msg("registration status updated")
	metrics.RecordTransition("registration", string(reg.Status))
	publish(ctx, s.publisher, s.log, registrationEvent(reg, from))
	res.Status = string(reg.Status)
	res.changed = true
	return res, nil
}

// MarkShipped records the courier hand-off of a paid delivery order.
func (s *PaymentService) MarkShipped(ctx context.Context, orderID uuid.UUID, courier, trackingNumber string) (*models.Order, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, validation("tracking number is required")
	}
	return s.transitionOrder(ctx, orderID, models.OrderShipping, func(o *models.Order) {
		now := s.now()
		o.ShippedAt = &now
		o.TrackingNumber = &trackingNumber
		if c := optional(courier); c != nil {
			o.Courier = c
		}
	})
}

// MarkPickedUp completes a paid pickup order once the buyer collected it.
func (s *PaymentService) MarkPickedUp(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.transitionOrder(ctx, orderID, models.OrderCompleted, func(o *models.Order) {
		now := s.now()
		o.CompletedAt = &now
	})
}

// ConfirmReceived lets the buyer complete a shipped order.
func (s *PaymentService) ConfirmReceived(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, lookup(err, "order")
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order belongs to another user", ErrForbidden)
	}
	if order.Status != models.OrderShipping {
		return nil, fmt.Errorf("%w: only shipped orders can be confirmed, order is %s", ErrInvalidTransition, order.Status)
	}
	return s.persistOrder(ctx, order, models.OrderCompleted, func(o *models.Order) {
		now := s.now()
		o.CompletedAt = &now
	})
}

func (s *PaymentService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.transitionOrder(ctx, orderID, models.OrderCancelled, nil)
}

func (s *PaymentService) CancelRegistration(ctx context.Context, regID uuid.UUID) (*models.ActivityRegistration, error) {
	reg, err := s.store.GetRegistration(ctx, regID)
	if err != nil {
		return nil, lookup(err, "registration")
	}
	from := reg.Status
	if err := reg.Transition(models.RegistrationCancelled); err != nil {
		return nil, err
	}
	if err := s.store.TransitionRegistration(ctx, reg, from); err != nil {
		return nil, err
	}
	metrics.RecordTransition("registration", string(reg.Status))
	publish(ctx, s.publisher, s.log, registrationEvent(reg, from))
	return reg, nil
}

func (s *PaymentService) transitionOrder(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, mutate func(*models.Order)) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, lookup(err, "order")
	}
	return s.persistOrder(ctx, order, to, mutate)
}

func (s *PaymentService) persistOrder(ctx context.Context, order *models.Order, to models.OrderStatus, mutate func(*models.Order)) (*models.Order, error) {
	from := order.Status
	if err := order.Transition(to); err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(order)
	}
	if err := s.store.TransitionOrder(ctx, order, from); err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", order.ID.String()).Str("from", string(from)).Str("status", string(to)).Msg("order status updated")
	s.afterOrderTransition(ctx, order, from)
	return order, nil
}

func (s *PaymentService) afterOrderTransition(ctx context.Context, order *models.Order, from models.OrderStatus) {
	metrics.RecordTransition("order", string(order.Status))
	publish(ctx, s.publisher, s.log, orderEvent(order, from))
}

func orderEvent(o *models.Order, from models.OrderStatus) events.StatusChanged {
	return events.StatusChanged{
		Type:       events.OrderStatusChanged,
		ID:         o.ID,
		UserID:     o.UserID,
		Reference:  o.PaymentReference,
		From:       string(from),
		To:         string(o.Status),
		Total:      o.Total,
		OccurredAt: time.Now(),
	}
}

func registrationEvent(r *models.ActivityRegistration, from models.RegistrationStatus) events.StatusChanged {
	return events.StatusChanged{
		Type:       events.RegistrationStatusChanged,
		ID:         r.ID,
		UserID:     r.UserID,
		Reference:  r.PaymentReference,
		From:       string(from),
		To:         string(r.Status),
		Total:      r.TotalPrice,
		OccurredAt: time.Now(),
	}
}

func publish(ctx context.Context, p events.Publisher, log zerolog.Logger, evt events.StatusChanged) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		log.Warn().Err(err).Str("type", string(evt.Type)).Str("reference", evt.Reference).Msg("failed to publish status event")
	}
}

// IsClientError reports whether err is one the caller caused rather than an
// internal or upstream failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrStaleStatus) ||
		errors.Is(err, ErrUnauthorized)
}
