package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressInput() AddressInput {
	return AddressInput{
		RecipientName: "Budi Santoso",
		Phone:         "0812 3456 7890",
		Street:        "Jl. Merdeka No. 10",
		District:      "Sumur Bandung",
		City:          "Bandung",
		Province:      "Jawa Barat",
		PostalCode:    "40111",
	}
}

func TestFirstAddressBecomesDefault(t *testing.T) {
	store := newMemStore()
	svc := NewAddressService(store)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Create(ctx, userID, addressInput())
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.Equal(t, "6281234567890", first.Phone)

	second, err := svc.Create(ctx, userID, addressInput())
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	require.NoError(t, svc.SetDefault(ctx, userID, second.ID))
	assert.False(t, store.addresses[first.ID].IsDefault)
	assert.True(t, store.addresses[second.ID].IsDefault)

	in := addressInput()
	in.IsDefault = true
	third, err := svc.Create(ctx, userID, in)
	require.NoError(t, err)
	assert.True(t, third.IsDefault)
	assert.False(t, store.addresses[second.ID].IsDefault)
}

func TestAddressValidation(t *testing.T) {
	svc := NewAddressService(newMemStore())
	tests := map[string]func(*AddressInput){
		"bad phone":      func(in *AddressInput) { in.Phone = "12345" },
		"short postal":   func(in *AddressInput) { in.PostalCode = "4011" },
		"alpha postal":   func(in *AddressInput) { in.PostalCode = "40A11" },
		"missing city":   func(in *AddressInput) { in.City = " " },
		"missing name":   func(in *AddressInput) { in.RecipientName = "" },
		"missing street": func(in *AddressInput) { in.Street = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := addressInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), uuid.New(), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAddressOwnership(t *testing.T) {
	store := newMemStore()
	svc := NewAddressService(store)
	ctx := context.Background()
	owner, stranger := uuid.New(), uuid.New()

	a, err := svc.Create(ctx, owner, addressInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, stranger, a.ID, addressInput())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, stranger, a.ID), ErrNotFound)
	assert.ErrorIs(t, svc.SetDefault(ctx, stranger, a.ID), ErrNotFound)

	in := addressInput()
	in.City = "Cimahi"
	updated, err := svc.Update(ctx, owner, a.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Cimahi", updated.City)
	assert.True(t, updated.IsDefault)

	require.NoError(t, svc.Delete(ctx, owner, a.ID))
	list, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list)
}
