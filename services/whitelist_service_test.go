package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhitelistAdd(t *testing.T) {
	store := newMemStore()
	svc := NewWhitelistService(store)
	ctx := context.Background()

	entry, err := svc.Add(ctx, WhitelistEntry{Phone: "0812-3456-7890", Name: " Budi ", Note: "pengurus"})
	require.NoError(t, err)
	assert.Equal(t, "6281234567890", entry.Phone)
	assert.Equal(t, "Budi", entry.Name)

	_, err = svc.Add(ctx, WhitelistEntry{Phone: "+6281234567890"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Add(ctx, WhitelistEntry{Phone: "nope"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWhitelistBulkImport(t *testing.T) {
	store := newMemStore()
	svc := NewWhitelistService(store)
	ctx := context.Background()

	_, err := svc.Add(ctx, WhitelistEntry{Phone: "081111111111"})
	require.NoError(t, err)

	res, err := svc.AddBulk(ctx, []WhitelistEntry{
		{Phone: "081111111111"},
		{Phone: "082222222222"},
		{Phone: "+6282222222222"},
		{Phone: "083333333333"},
		{Phone: "abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Added)
	assert.Equal(t, int64(2), res.Skipped)
	assert.Equal(t, []string{"abc"}, res.Invalid)

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestWhitelistDelete(t *testing.T) {
	store := newMemStore()
	svc := NewWhitelistService(store)
	ctx := context.Background()

	_, err := svc.Add(ctx, WhitelistEntry{Phone: "081111111111"})
	require.NoError(t, err)
	id := store.whitelist["6281111111111"].ID

	require.NoError(t, svc.Delete(ctx, id))
	assert.ErrorIs(t, svc.Delete(ctx, id), ErrNotFound)
}
