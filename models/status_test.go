package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationTransitions(t *testing.T) {
	r := &ActivityRegistration{Status: RegistrationPending}
	require.NoError(t, r.Transition(RegistrationPaid))
	assert.True(t, r.Status.Terminal())

	for _, to := range []RegistrationStatus{RegistrationPending, RegistrationCancelled, RegistrationFailed} {
		err := r.Transition(to)
		assert.True(t, errors.Is(err, ErrInvalidTransition), "PAID -> %s", to)
	}
	assert.Equal(t, RegistrationPaid, r.Status)

	failed := &ActivityRegistration{Status: RegistrationPending}
	require.NoError(t, failed.Transition(RegistrationFailed))
	assert.ErrorIs(t, failed.Transition(RegistrationPaid), ErrInvalidTransition)
}

func TestOrderDeliveryChain(t *testing.T) {
	o := &Order{Status: OrderPending, ShippingMethod: ShippingDelivery}
	require.NoError(t, o.Transition(OrderPaid))
	assert.ErrorIs(t, o.Transition(OrderCompleted), ErrInvalidTransition, "delivery orders must ship first")
	require.NoError(t, o.Transition(OrderShipping))
	require.NoError(t, o.Transition(OrderCompleted))
	assert.True(t, o.Status.Terminal())
}

func TestOrderPickupChain(t *testing.T) {
	o := &Order{Status: OrderPending, ShippingMethod: ShippingPickup}
	require.NoError(t, o.Transition(OrderPaid))
	assert.ErrorIs(t, o.Transition(OrderShipping), ErrInvalidTransition)
	require.NoError(t, o.Transition(OrderCompleted))
}

func TestOrderNeverMovesBackwards(t *testing.T) {
	rank := map[OrderStatus]int{OrderPending: 0, OrderPaid: 1, OrderShipping: 2, OrderCompleted: 3, OrderCancelled: 3}
	all := []OrderStatus{OrderPending, OrderPaid, OrderShipping, OrderCompleted, OrderCancelled}
	for _, from := range all {
		for _, to := range all {
			if from.CanTransition(to) {
				assert.Greater(t, rank[to], rank[from], "%s -> %s", from, to)
			}
		}
	}
	assert.False(t, OrderCompleted.CanTransition(OrderPending))
	assert.False(t, OrderCancelled.CanTransition(OrderPaid))
	assert.False(t, OrderStatus("SHIPPED").Valid())
}

func TestActivityDeriveStatus(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	a := &Activity{
		StartDate: time.Date(2026, 8, 10, 0, 0, 0, 0, loc),
		EndDate:   time.Date(2026, 8, 12, 0, 0, 0, 0, loc),
	}
	assert.Equal(t, ActivityUpcoming, a.DeriveStatus(time.Date(2026, 8, 9, 23, 0, 0, 0, loc)))
	assert.Equal(t, ActivityOngoing, a.DeriveStatus(time.Date(2026, 8, 10, 8, 0, 0, 0, loc)))
	assert.Equal(t, ActivityOngoing, a.DeriveStatus(time.Date(2026, 8, 12, 20, 0, 0, 0, loc)))
	assert.Equal(t, ActivityCompleted, a.DeriveStatus(time.Date(2026, 8, 13, 0, 0, 1, 0, loc)))
}
