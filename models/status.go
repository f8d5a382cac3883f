package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStaleStatus is returned when a persisted record no longer holds the
	// status a transition was computed from.
	ErrStaleStatus = errors.New("status changed concurrently")
)

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "PENDING"
	RegistrationPaid      RegistrationStatus = "PAID"
	RegistrationCancelled RegistrationStatus = "CANCELLED"
	RegistrationFailed    RegistrationStatus = "FAILED"
)

var registrationNext = map[RegistrationStatus]map[RegistrationStatus]bool{
	RegistrationPending:   {RegistrationPaid: true, RegistrationCancelled: true, RegistrationFailed: true},
	RegistrationPaid:      {},
	RegistrationCancelled: {},
	RegistrationFailed:    {},
}

func (s RegistrationStatus) Valid() bool {
	_, ok := registrationNext[s]
	return ok
}

func (s RegistrationStatus) Terminal() bool {
	return s.Valid() && len(registrationNext[s]) == 0
}

func (s RegistrationStatus) CanTransition(to RegistrationStatus) bool {
	return registrationNext[s][to]
}

// Transition moves the registration to the given status or returns
// ErrInvalidTransition. It only mutates the in-memory record.
func (r *ActivityRegistration) Transition(to RegistrationStatus) error {
	if !r.Status.CanTransition(to) {
		return fmt.Errorf("%w: registration %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	return nil
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderShipping  OrderStatus = "SHIPPING"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// PAID -> COMPLETED only applies to pickup orders; Order.Transition enforces it.
var orderNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:   {OrderPaid: true, OrderCancelled: true},
	OrderPaid:      {OrderShipping: true, OrderCompleted: true},
	OrderShipping:  {OrderCompleted: true},
	OrderCompleted: {},
	OrderCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderNext[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderNext[s]) == 0
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return orderNext[s][to]
}

func (o *Order) CanTransition(to OrderStatus) bool {
	if !o.Status.CanTransition(to) {
		return false
	}
	switch {
	case o.Status == OrderPaid && to == OrderCompleted:
		return o.ShippingMethod == ShippingPickup
	case to == OrderShipping:
		return o.ShippingMethod == ShippingDelivery
	}
	return true
}

func (o *Order) Transition(to OrderStatus) error {
	if !o.CanTransition(to) {
		return fmt.Errorf("%w: order %s -> %s (%s)", ErrInvalidTransition, o.Status, to, o.ShippingMethod)
	}
	o.Status = to
	return nil
}

type ActivityStatus string

const (
	ActivityUpcoming  ActivityStatus = "UPCOMING"
	ActivityOngoing   ActivityStatus = "ONGOING"
	ActivityCompleted ActivityStatus = "COMPLETED"
)

type ShippingMethod string

const (
	ShippingPickup   ShippingMethod = "PICKUP"
	ShippingDelivery ShippingMethod = "DELIVERY"
)
