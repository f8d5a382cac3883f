package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/payments"
	"github.com/komunitas/platform/services"
	"github.com/rs/zerolog"
)

type PendingStore interface {
	PendingOrders(ctx context.Context, before time.Time, withGateway bool) ([]models.Order, error)
	PendingRegistrations(ctx context.Context, before time.Time, withGateway bool) ([]models.ActivityRegistration, error)
}

type PaymentActions interface {
	SyncFromGateway(ctx context.Context, reference string) (*services.SyncResult, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	CancelRegistration(ctx context.Context, id uuid.UUID) (*models.ActivityRegistration, error)
}

// PaymentJobs sweeps records left PENDING by lost notifications or failed
// gateway calls.
type PaymentJobs struct {
	store    PendingStore
	payments PaymentActions
	// ReconcileAfter is how old a PENDING record with a gateway token must be
	// before its status is pulled from the gateway.
	ReconcileAfter time.Duration
	// PendingTTL is how long a PENDING record may live before CancelStale
	// looks at it.
	PendingTTL time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

func NewPaymentJobs(store PendingStore, actions PaymentActions, pendingTTL time.Duration, log zerolog.Logger) *PaymentJobs {
	return &PaymentJobs{
		store:          store,
		payments:       actions,
		ReconcileAfter: 15 * time.Minute,
		PendingTTL:     pendingTTL,
		log:            log.With().Str("component", "jobs").Logger(),
		now:            time.Now,
	}
}

// Reconcile asks the gateway for the status of every PENDING record that
// has a transaction and returns how many changed.
func (j *PaymentJobs) Reconcile(ctx context.Context) int {
	before := j.now().Add(-j.ReconcileAfter)
	var refs []string

	orders, err := j.store.PendingOrders(ctx, before, true)
	if err != nil {
		j.log.Error().Err(err).Msg("failed to list pending orders")
	}
	for _, o := range orders {
		refs = append(refs, o.PaymentReference)
	}
	regs, err := j.store.PendingRegistrations(ctx, before, true)
	if err != nil {
		j.log.Error().Err(err).Msg("failed to list pending registrations")
	}
	for _, r := range regs {
		refs = append(refs, r.PaymentReference)
	}

	changed := 0
	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		res, err := j.payments.SyncFromGateway(ctx, ref)
		if err != nil {
			j.log.Warn().Err(err).Str("reference", ref).Msg("reconciliation failed")
			continue
		}
		if res.Status != string(models.OrderPending) {
			changed++
		}
	}
	if len(refs) > 0 {
		j.log.Info().Int("checked", len(refs)).Int("changed", changed).Msg("reconciled pending payments")
	}
	return changed
}

// CancelStale cancels PENDING records older than PendingTTL. Records that
// never reached the gateway are cancelled outright. Records with a token are
// synced first and cancelled only when the gateway has no transaction for
// them or reports nothing actionable.
func (j *PaymentJobs) CancelStale(ctx context.Context) int {
	before := j.now().Add(-j.PendingTTL)
	cancelled := 0

	cancelOrder := func(id uuid.UUID) {
		if _, err := j.payments.CancelOrder(ctx, id); err != nil {
			j.log.Warn().Err(err).Str("order_id", id.String()).Msg("failed to cancel stale order")
			return
		}
		cancelled++
	}
	cancelRegistration := func(id uuid.UUID) {
		if _, err := j.payments.CancelRegistration(ctx, id); err != nil {
			j.log.Warn().Err(err).Str("registration_id", id.String()).Msg("failed to cancel stale registration")
			return
		}
		cancelled++
	}

	for _, withGateway := range []bool{false, true} {
		orders, err := j.store.PendingOrders(ctx, before, withGateway)
		if err != nil {
			j.log.Error().Err(err).Msg("failed to list stale orders")
		}
		for _, o := range orders {
			if ctx.Err() != nil {
				return cancelled
			}
			if !withGateway || j.abandoned(ctx, o.PaymentReference) {
				cancelOrder(o.ID)
			}
		}

		regs, err := j.store.PendingRegistrations(ctx, before, withGateway)
		if err != nil {
			j.log.Error().Err(err).Msg("failed to list stale registrations")
		}
		for _, r := range regs {
			if ctx.Err() != nil {
				return cancelled
			}
			if !withGateway || j.abandoned(ctx, r.PaymentReference) {
				cancelRegistration(r.ID)
			}
		}
	}

	if cancelled > 0 {
		j.log.Info().Int("cancelled", cancelled).Msg("cancelled stale pending records")
	}
	return cancelled
}

// abandoned syncs a stale tokened record and reports whether it should be
// cancelled. Gateway outages keep the record for the next run.
func (j *PaymentJobs) abandoned(ctx context.Context, ref string) bool {
	res, err := j.payments.SyncFromGateway(ctx, ref)
	switch {
	case errors.Is(err, services.ErrNotFound):
		return true
	case err != nil:
		j.log.Warn().Err(err).Str("reference", ref).Msg("stale payment check failed")
		return false
	case res.Status != string(models.OrderPending):
		return false
	default:
		return res.Outcome != payments.OutcomePending
	}
}
