package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/komunitas/platform/pricing"
)

type ActivityRegistration struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ActivityID uuid.UUID `gorm:"type:uuid;not null;index" json:"activity_id"`

	TshirtSize        pricing.Size      `gorm:"size:5;not null" json:"tshirt_size"`
	NeedAccommodation bool              `gorm:"default:false" json:"need_accommodation"`
	RoomType          *pricing.RoomType `gorm:"size:10" json:"room_type"`

	BaseFee            int64 `gorm:"not null;default:0" json:"base_fee"`
	TshirtPrice        int64 `gorm:"not null;default:0" json:"tshirt_price"`
	AccommodationPrice int64 `gorm:"not null;default:0" json:"accommodation_price"`
	TotalPrice         int64 `gorm:"not null;default:0" json:"total_price"`

	Status               RegistrationStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	PaymentReference     string             `gorm:"size:64;unique" json:"payment_reference"`
	SnapToken            *string            `gorm:"size:255" json:"snap_token,omitempty"`
	RedirectURL          *string            `gorm:"type:text" json:"redirect_url,omitempty"`
	GatewayTransactionID *string            `gorm:"size:255" json:"gateway_transaction_id,omitempty"`
	PaidAt               *time.Time         `json:"paid_at,omitempty"`
	ReceiptURL           *string            `gorm:"type:text" json:"receipt_url,omitempty"`

	User     User     `gorm:"foreignkey:UserID" json:"user,omitempty"`
	Activity Activity `gorm:"foreignkey:ActivityID" json:"activity,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *ActivityRegistration) Selection() pricing.Selection {
	return pricing.Selection{
		TshirtSize:        r.TshirtSize,
		NeedAccommodation: r.NeedAccommodation,
		RoomType:          r.RoomType,
	}
}

func (r *ActivityRegistration) ApplyBreakdown(b pricing.Breakdown) {
	r.BaseFee = b.BaseFee
	r.TshirtPrice = b.TshirtPrice
	r.AccommodationPrice = b.AccommodationPrice
	r.TotalPrice = b.Total
}
