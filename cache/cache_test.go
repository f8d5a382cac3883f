package cache

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ fiber.Storage = (*LimiterStorage)(nil)
var _ Store = (*Redis)(nil)

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := m.Get(ctx, "idem:abc")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "idem:abc", "order-1", time.Minute))
	v, err := m.Get(ctx, "idem:abc")
	require.NoError(t, err)
	assert.Equal(t, "order-1", v)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "idem:abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemorySweepsExpiredWhenFull(t *testing.T) {
	now := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 1024; i++ {
		require.NoError(t, m.Set(ctx, string(rune('a'+i%26))+time.Duration(i).String(), "x", time.Second))
	}
	now = now.Add(time.Hour)
	require.NoError(t, m.Set(ctx, "fresh", "y", time.Minute))
	assert.Len(t, m.items, 1)
}
