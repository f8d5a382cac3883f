package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	MerchandiseID uuid.UUID `gorm:"type:uuid;not null" json:"merchandise_id"`

	Quantity     int   `gorm:"not null" json:"quantity"`
	UnitPrice    int64 `gorm:"not null" json:"unit_price"`
	Subtotal     int64 `gorm:"not null" json:"subtotal"`
	ShippingCost int64 `gorm:"not null;default:0" json:"shipping_cost"`
	Total        int64 `gorm:"not null" json:"total"`

	ShippingMethod ShippingMethod `gorm:"size:20;not null" json:"shipping_method"`
	AddressID      *uuid.UUID     `gorm:"type:uuid" json:"address_id"`
	Courier        *string        `gorm:"size:100" json:"courier"`
	CourierService *string        `gorm:"size:100" json:"courier_service"`
	TrackingNumber *string        `gorm:"size:100" json:"tracking_number"`

	Status               OrderStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	PaymentReference     string      `gorm:"size:64;unique" json:"payment_reference"`
	SnapToken            *string     `gorm:"size:255" json:"snap_token,omitempty"`
	RedirectURL          *string     `gorm:"type:text" json:"redirect_url,omitempty"`
	GatewayTransactionID *string     `gorm:"size:255" json:"gateway_transaction_id,omitempty"`
	PaidAt               *time.Time  `json:"paid_at,omitempty"`
	ShippedAt            *time.Time  `json:"shipped_at,omitempty"`
	CompletedAt          *time.Time  `json:"completed_at,omitempty"`

	User        User        `gorm:"foreignkey:UserID" json:"user,omitempty"`
	Merchandise Merchandise `gorm:"foreignkey:MerchandiseID" json:"merchandise,omitempty"`
	Address     *Address    `gorm:"foreignkey:AddressID" json:"address,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
