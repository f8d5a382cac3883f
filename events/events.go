// Package events carries order and registration status changes from the
// payment flow to notification consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Type string

const (
	OrderStatusChanged        Type = "order.status_changed"
	RegistrationStatusChanged Type = "registration.status_changed"
)

type StatusChanged struct {
	Type       Type      `json:"type"`
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Reference  string    `json:"reference"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Total      int64     `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, evt StatusChanged) error
}

type Handler func(ctx context.Context, evt StatusChanged) error

// Direct hands events to the handler on its own goroutine. It is used when no
// broker is configured.
type Direct struct {
	handler Handler
	log     zerolog.Logger
}

func NewDirect(handler Handler, log zerolog.Logger) *Direct {
	return &Direct{handler: handler, log: log.With().Str("component", "events").Logger()}
}

func (d *Direct) Publish(ctx context.Context, evt StatusChanged) error {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := d.handler(ctx, evt); err != nil {
			d.log.Warn().Err(err).
				Str("type", string(evt.Type)).
				Str("reference", evt.Reference).
				Msg("event handler failed")
		}
	}()
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, StatusChanged) error { return nil }
