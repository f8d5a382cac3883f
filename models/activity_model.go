package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/komunitas/platform/pricing"
)

type Activity struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Slug         string         `gorm:"size:255;not null;unique" json:"slug"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	StartDate    time.Time      `gorm:"not null" json:"start_date"`
	EndDate      time.Time      `gorm:"not null" json:"end_date"`
	Location     string         `gorm:"size:255" json:"location"`
	Status       ActivityStatus `gorm:"size:20;not null;default:'UPCOMING'" json:"status"`
	StatusManual bool           `gorm:"default:false" json:"status_manual"`

	RegistrationFee *int64 `json:"registration_fee"`
	TshirtPriceS    *int64 `json:"tshirt_price_s"`
	TshirtPriceM    *int64 `json:"tshirt_price_m"`
	TshirtPriceL    *int64 `json:"tshirt_price_l"`
	TshirtPriceXL   *int64 `json:"tshirt_price_xl"`
	TshirtPriceXXL  *int64 `json:"tshirt_price_xxl"`
	TshirtPriceXXXL *int64 `json:"tshirt_price_xxxl"`

	AccommodationName         *string `gorm:"size:255" json:"accommodation_name"`
	AccommodationPriceSharing *int64  `json:"accommodation_price_sharing"`
	AccommodationPriceSingle  *int64  `json:"accommodation_price_single"`

	CoverURL           *string `gorm:"type:text" json:"cover_url"`
	CoverPublicID      *string `gorm:"size:255" json:"cover_public_id"`
	AttachmentURL      *string `gorm:"type:text" json:"attachment_url"`
	AttachmentPublicID *string `gorm:"size:255" json:"attachment_public_id"`

	RequiresWhitelist bool `gorm:"default:false" json:"requires_whitelist"`
	Capacity          *int `json:"capacity"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Activity) PriceTable() pricing.PriceTable {
	t := pricing.PriceTable{}
	t.Set(pricing.KeyRegistrationFee, a.RegistrationFee)
	t.Set(pricing.TshirtKey(pricing.SizeS), a.TshirtPriceS)
	t.Set(pricing.TshirtKey(pricing.SizeM), a.TshirtPriceM)
	t.Set(pricing.TshirtKey(pricing.SizeL), a.TshirtPriceL)
	t.Set(pricing.TshirtKey(pricing.SizeXL), a.TshirtPriceXL)
	t.Set(pricing.TshirtKey(pricing.SizeXXL), a.TshirtPriceXXL)
	t.Set(pricing.TshirtKey(pricing.SizeXXXL), a.TshirtPriceXXXL)
	t.Set(pricing.KeyRoomSharing, a.AccommodationPriceSharing)
	t.Set(pricing.KeyRoomSingle, a.AccommodationPriceSingle)
	return t
}

// DeriveStatus maps the date range onto a lifecycle status. The end date is
// inclusive for the whole day it falls on.
func (a *Activity) DeriveStatus(now time.Time) ActivityStatus {
	end := a.EndDate
	if h, m, sec := end.Clock(); h == 0 && m == 0 && sec == 0 {
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	switch {
	case now.Before(a.StartDate):
		return ActivityUpcoming
	case now.After(end):
		return ActivityCompleted
	default:
		return ActivityOngoing
	}
}
