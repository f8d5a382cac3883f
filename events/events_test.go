package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectDispatchesOutsideRequestContext(t *testing.T) {
	got := make(chan StatusChanged, 1)
	d := NewDirect(func(ctx context.Context, evt StatusChanged) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		got <- evt
		return nil
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	evt := StatusChanged{Type: OrderStatusChanged, ID: uuid.New(), From: "PENDING", To: "PAID"}
	require.NoError(t, d.Publish(ctx, evt))
	cancel()

	select {
	case e := <-got:
		assert.Equal(t, evt, e)
	case <-time.After(time.Second):
		t.Fatal("handler was not called")
	}
}

func TestDirectSwallowsHandlerErrors(t *testing.T) {
	done := make(chan struct{})
	d := NewDirect(func(context.Context, StatusChanged) error {
		defer close(done)
		return errors.New("smtp down")
	}, zerolog.Nop())

	assert.NoError(t, d.Publish(context.Background(), StatusChanged{Type: RegistrationStatusChanged}))
	<-done
}
