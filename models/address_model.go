package models

import (
	"time"

	"github.com/google/uuid"
)

type Address struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	RecipientName string    `gorm:"size:255;not null" json:"recipient_name"`
	Phone         string    `gorm:"size:20;not null" json:"phone"`
	Street        string    `gorm:"type:text;not null" json:"street"`
	District      string    `gorm:"size:100" json:"district"`
	City          string    `gorm:"size:100;not null" json:"city"`
	Province      string    `gorm:"size:100;not null" json:"province"`
	PostalCode    string    `gorm:"size:10;not null" json:"postal_code"`
	IsDefault     bool      `gorm:"default:false" json:"is_default"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
