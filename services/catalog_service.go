package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/utils"
	"github.com/rs/zerolog"
)

type CatalogStore interface {
	ListActivities(ctx context.Context, status models.ActivityStatus) ([]models.Activity, error)
	GetActivity(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	GetActivityBySlug(ctx context.Context, slug string) (*models.Activity, error)
	ActivitySlugTaken(ctx context.Context, slug string) (bool, error)
	CreateActivity(ctx context.Context, activity *models.Activity) error
	SaveActivity(ctx context.Context, activity *models.Activity) error
	DeleteActivity(ctx context.Context, id uuid.UUID) error
	ListAutoStatusActivities(ctx context.Context) ([]models.Activity, error)
	UpdateActivityStatus(ctx context.Context, id uuid.UUID, status models.ActivityStatus) error

	ListMerchandise(ctx context.Context, category string, activeOnly bool) ([]models.Merchandise, error)
	GetMerchandise(ctx context.Context, id uuid.UUID) (*models.Merchandise, error)
	CreateMerchandise(ctx context.Context, item *models.Merchandise) error
	SaveMerchandise(ctx context.Context, item *models.Merchandise) error
}

type ActivityInput struct {
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Location    string
	// Status pins the lifecycle status; nil derives it from the dates.
	Status *models.ActivityStatus

	RegistrationFee *int64
	TshirtPrices    map[string]*int64

	AccommodationName         *string
	AccommodationPriceSharing *int64
	AccommodationPriceSingle  *int64

	CoverURL           *string
	CoverPublicID      *string
	AttachmentURL      *string
	AttachmentPublicID *string

	RequiresWhitelist bool
	Capacity          *int
}

type MerchandiseInput struct {
	Name        string
	Price       int64
	Category    string
	Description string
	Images      []models.MediaRef
	WeightGrams int
	IsActive    *bool
}

type CatalogService struct {
	store CatalogStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewCatalogService(store CatalogStore, log zerolog.Logger) *CatalogService {
	return &CatalogService{store: store, log: log.With().Str("service", "catalog").Logger(), now: time.Now}
}

func (s *CatalogService) ListActivities(ctx context.Context, status models.ActivityStatus) ([]models.Activity, error) {
	return s.store.ListActivities(ctx, status)
}

func (s *CatalogService) GetActivityBySlug(ctx context.Context, slug string) (*models.Activity, error) {
	a, err := s.store.GetActivityBySlug(ctx, slug)
	if err != nil {
		return nil, lookup(err, "activity")
	}
	return a, nil
}

func (s *CatalogService) GetActivity(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, lookup(err, "activity")
	}
	return a, nil
}

func (s *CatalogService) CreateActivity(ctx context.Context, in ActivityInput) (*models.Activity, error) {
	activity := &models.Activity{}
	if err := s.applyActivity(activity, in); err != nil {
		return nil, err
	}

	slug, err := utils.GenerateUniqueSlug(activity.Title, func(slug string) (bool, error) {
		return s.store.ActivitySlugTaken(ctx, slug)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate slug: %w", err)
	}
	activity.Slug = slug

	if err := s.store.CreateActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	s.log.Info().Str("activity_id", activity.ID.String()).Str("slug", slug).Msg("activity created")
	return activity, nil
}

// UpdateActivity replaces the editable fields; the slug stays stable.
func (s *CatalogService) UpdateActivity(ctx context.Context, id uuid.UUID, in ActivityInput) (*models.Activity, error) {
	activity, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, lookup(err, "activity")
	}
	if err := s.applyActivity(activity, in); err != nil {
		return nil, err
	}
	if err := s.store.SaveActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to update activity: %w", err)
	}
	return activity, nil
}

func (s *CatalogService) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteActivity(ctx, id); err != nil {
		return lookup(err, "activity")
	}
	return nil
}

// RefreshActivityStatuses moves activities without a pinned status along
// their date range and returns how many changed.
func (s *CatalogService) RefreshActivityStatuses(ctx context.Context) (int, error) {
	activities, err := s.store.ListAutoStatusActivities(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	changed := 0
	for i := range activities {
		a := &activities[i]
		status := a.DeriveStatus(now)
		if status == a.Status {
			continue
		}
		if err := s.store.UpdateActivityStatus(ctx, a.ID, status); err != nil {
			s.log.Error().Err(err).Str("activity_id", a.ID.String()).Msg("failed to refresh activity status")
			continue
		}
		changed++
	}
	return changed, nil
}

func (s *CatalogService) applyActivity(a *models.Activity, in ActivityInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return validation("title is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return validation("start and end dates are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return validation("end date must not be before start date")
	}
	if in.Capacity != nil && *in.Capacity < 0 {
		return validation("capacity cannot be negative")
	}
	for _, p := range []*int64{in.RegistrationFee, in.AccommodationPriceSharing, in.AccommodationPriceSingle} {
		if p != nil && *p < 0 {
			return validation("prices cannot be negative")
		}
	}

	a.Title = in.Title
	a.Description = in.Description
	a.StartDate = in.StartDate
	a.EndDate = in.EndDate
	a.Location = in.Location
	a.RegistrationFee = in.RegistrationFee
	a.AccommodationName = in.AccommodationName
	a.AccommodationPriceSharing = in.AccommodationPriceSharing
	a.AccommodationPriceSingle = in.AccommodationPriceSingle
	a.CoverURL = in.CoverURL
	a.CoverPublicID = in.CoverPublicID
	a.AttachmentURL = in.AttachmentURL
	a.AttachmentPublicID = in.AttachmentPublicID
	a.RequiresWhitelist = in.RequiresWhitelist
	a.Capacity = in.Capacity

	prices := map[string]**int64{
		"S": &a.TshirtPriceS, "M": &a.TshirtPriceM, "L": &a.TshirtPriceL,
		"XL": &a.TshirtPriceXL, "XXL": &a.TshirtPriceXXL, "XXXL": &a.TshirtPriceXXXL,
	}
	for _, field := range prices {
		*field = nil
	}
	for size, price := range in.TshirtPrices {
		field, ok := prices[strings.ToUpper(size)]
		if !ok {
			return validation("unknown t-shirt size %q", size)
		}
		if price != nil && *price < 0 {
			return validation("prices cannot be negative")
		}
		*field = price
	}

	if in.Status != nil {
		switch *in.Status {
		case models.ActivityUpcoming, models.ActivityOngoing, models.ActivityCompleted:
		default:
			return validation("unknown activity status %q", *in.Status)
		}
		a.Status = *in.Status
		a.StatusManual = true
	} else {
		a.StatusManual = false
		a.Status = a.DeriveStatus(s.now())
	}
	return nil
}

func (s *CatalogService) ListMerchandise(ctx context.Context, category string, includeInactive bool) ([]models.Merchandise, error) {
	return s.store.ListMerchandise(ctx, category, !includeInactive)
}

// GetMerchandise hides inactive items unless includeInactive is set.
func (s *CatalogService) GetMerchandise(ctx context.Context, id uuid.UUID, includeInactive bool) (*models.Merchandise, error) {
	item, err := s.store.GetMerchandise(ctx, id)
	if err != nil {
		return nil, lookup(err, "merchandise")
	}
	if !item.IsActive && !includeInactive {
		return nil, fmt.Errorf("%w: merchandise", ErrNotFound)
	}
	return item, nil
}

func (s *CatalogService) CreateMerchandise(ctx context.Context, in MerchandiseInput) (*models.Merchandise, error) {
	item := &models.Merchandise{IsActive: true}
	if err := applyMerchandise(item, in); err != nil {
		return nil, err
	}
	if err := s.store.CreateMerchandise(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create merchandise: %w", err)
	}
	return item, nil
}

func (s *CatalogService) UpdateMerchandise(ctx context.Context, id uuid.UUID, in MerchandiseInput) (*models.Merchandise, error) {
	item, err := s.store.GetMerchandise(ctx, id)
	if err != nil {
		return nil, lookup(err, "merchandise")
	}
	if err := applyMerchandise(item, in); err != nil {
		return nil, err
	}
	if err := s.store.SaveMerchandise(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update merchandise: %w", err)
	}
	return item, nil
}

// DeactivateMerchandise hides an item from the shop; existing orders keep
// referencing it.
func (s *CatalogService) DeactivateMerchandise(ctx context.Context, id uuid.UUID) error {
	item, err := s.store.GetMerchandise(ctx, id)
	if err != nil {
		return lookup(err, "merchandise")
	}
	item.IsActive = false
	return s.store.SaveMerchandise(ctx, item)
}

func applyMerchandise(m *models.Merchandise, in MerchandiseInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return validation("name is required")
	}
	if in.Price < 0 {
		return validation("price cannot be negative")
	}
	if in.WeightGrams < 0 {
		return validation("weight cannot be negative")
	}
	m.Name = in.Name
	m.Price = in.Price
	m.Category = strings.TrimSpace(in.Category)
	m.Description = in.Description
	m.Images = in.Images
	if m.Images == nil {
		m.Images = []models.MediaRef{}
	}
	m.WeightGrams = in.WeightGrams
	if m.WeightGrams == 0 {
		m.WeightGrams = models.DefaultWeightGrams
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	return nil
}
