package services

import (
	"context"
	"testing"
	"time"

	"github.com/komunitas/platform/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogFixture(now time.Time) (*CatalogService, *memStore) {
	store := newMemStore()
	svc := NewCatalogService(store, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc, store
}

func activityInput(title string) ActivityInput {
	return ActivityInput{
		Title:           title,
		StartDate:       time.Date(2025, 8, 16, 0, 0, 0, 0, jakarta),
		EndDate:         time.Date(2025, 8, 17, 0, 0, 0, 0, jakarta),
		Location:        "Lembang",
		RegistrationFee: i64(50000),
		TshirtPrices:    map[string]*int64{"m": i64(30000), "XL": i64(35000)},
	}
}

func TestCreateActivityAssignsUniqueSlugs(t *testing.T) {
	svc, _ := newCatalogFixture(time.Date(2025, 8, 1, 0, 0, 0, 0, jakarta))
	ctx := context.Background()

	first, err := svc.CreateActivity(ctx, activityInput("Jambore Nasional 2025"))
	require.NoError(t, err)
	second, err := svc.CreateActivity(ctx, activityInput("Jambore Nasional 2025!"))
	require.NoError(t, err)

	assert.Equal(t, "jambore-nasional-2025", first.Slug)
	assert.Equal(t, "jambore-nasional-2025-2", second.Slug)
	assert.Equal(t, models.ActivityUpcoming, first.Status)
	assert.False(t, first.StatusManual)
	require.NotNil(t, first.TshirtPriceM)
	assert.Equal(t, int64(30000), *first.TshirtPriceM)
	assert.Nil(t, first.TshirtPriceS)

	found, err := svc.GetActivityBySlug(ctx, "jambore-nasional-2025-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
}

func TestActivityValidation(t *testing.T) {
	svc, _ := newCatalogFixture(time.Now())
	ctx := context.Background()

	tests := map[string]func(*ActivityInput){
		"missing title":  func(in *ActivityInput) { in.Title = "  " },
		"reversed dates": func(in *ActivityInput) { in.EndDate = in.StartDate.AddDate(0, 0, -1) },
		"negative fee":   func(in *ActivityInput) { in.RegistrationFee = i64(-1) },
		"unknown size":   func(in *ActivityInput) { in.TshirtPrices["XS"] = i64(10000) },
		"negative shirt": func(in *ActivityInput) { in.TshirtPrices["L"] = i64(-5) },
		"bad status":     func(in *ActivityInput) { s := models.ActivityStatus("DRAFT"); in.Status = &s },
		"negative seats": func(in *ActivityInput) { c := -3; in.Capacity = &c },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := activityInput("Bakti Sosial")
			mutate(&in)
			_, err := svc.CreateActivity(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUpdateActivityKeepsSlugAndPinsStatus(t *testing.T) {
	svc, _ := newCatalogFixture(time.Date(2025, 8, 1, 0, 0, 0, 0, jakarta))
	ctx := context.Background()

	a, err := svc.CreateActivity(ctx, activityInput("Jambore"))
	require.NoError(t, err)

	in := activityInput("Jambore Raya")
	done := models.ActivityCompleted
	in.Status = &done
	updated, err := svc.UpdateActivity(ctx, a.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "jambore", updated.Slug)
	assert.Equal(t, "Jambore Raya", updated.Title)
	assert.Equal(t, models.ActivityCompleted, updated.Status)
	assert.True(t, updated.StatusManual)
}

func TestRefreshActivityStatuses(t *testing.T) {
	svc, store := newCatalogFixture(time.Date(2025, 8, 1, 0, 0, 0, 0, jakarta))
	ctx := context.Background()

	auto, err := svc.CreateActivity(ctx, activityInput("Otomatis"))
	require.NoError(t, err)
	pinnedIn := activityInput("Manual")
	upcoming := models.ActivityUpcoming
	pinnedIn.Status = &upcoming
	pinned, err := svc.CreateActivity(ctx, pinnedIn)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2025, 8, 16, 10, 0, 0, 0, jakarta) }
	n, err := svc.RefreshActivityStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.ActivityOngoing, store.activities[auto.ID].Status)
	assert.Equal(t, models.ActivityUpcoming, store.activities[pinned.ID].Status)

	svc.now = func() time.Time { return time.Date(2025, 8, 17, 23, 0, 0, 0, jakarta) }
	n, err = svc.RefreshActivityStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "end date is inclusive")

	svc.now = func() time.Time { return time.Date(2025, 8, 18, 0, 30, 0, 0, jakarta) }
	n, err = svc.RefreshActivityStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.ActivityCompleted, store.activities[auto.ID].Status)
}

func TestDeleteActivity(t *testing.T) {
	svc, _ := newCatalogFixture(time.Now())
	ctx := context.Background()
	a, err := svc.CreateActivity(ctx, activityInput("Sementara"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteActivity(ctx, a.ID))
	assert.ErrorIs(t, svc.DeleteActivity(ctx, a.ID), ErrNotFound)
	_, err = svc.GetActivity(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMerchandiseLifecycle(t *testing.T) {
	svc, _ := newCatalogFixture(time.Now())
	ctx := context.Background()

	_, err := svc.CreateMerchandise(ctx, MerchandiseInput{Name: " ", Price: 1000})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateMerchandise(ctx, MerchandiseInput{Name: "Topi", Price: -1})
	assert.ErrorIs(t, err, ErrValidation)

	item, err := svc.CreateMerchandise(ctx, MerchandiseInput{Name: " Kaos Komunitas ", Price: 85000, Category: "apparel"})
	require.NoError(t, err)
	assert.Equal(t, "Kaos Komunitas", item.Name)
	assert.True(t, item.IsActive)
	assert.Equal(t, models.DefaultWeightGrams, item.WeightGrams)
	assert.NotNil(t, item.Images)

	_, err = svc.CreateMerchandise(ctx, MerchandiseInput{Name: "Stiker", Price: 5000, Category: "aksesoris"})
	require.NoError(t, err)

	apparel, err := svc.ListMerchandise(ctx, "apparel", false)
	require.NoError(t, err)
	assert.Len(t, apparel, 1)

	require.NoError(t, svc.DeactivateMerchandise(ctx, item.ID))

	_, err = svc.GetMerchandise(ctx, item.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)
	hidden, err := svc.GetMerchandise(ctx, item.ID, true)
	require.NoError(t, err)
	assert.False(t, hidden.IsActive)

	visible, err := svc.ListMerchandise(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
	all, err := svc.ListMerchandise(ctx, "", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active := true
	restored, err := svc.UpdateMerchandise(ctx, item.ID, MerchandiseInput{Name: "Kaos Komunitas", Price: 90000, WeightGrams: 250, IsActive: &active})
	require.NoError(t, err)
	assert.True(t, restored.IsActive)
	assert.Equal(t, int64(90000), restored.Price)
	assert.Equal(t, 250, restored.WeightGrams)
}
