package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const DefaultWeightGrams = 1000

type MediaRef struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

type Merchandise struct {
	ID          uuid.UUID                     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name        string                        `gorm:"size:255;not null" json:"name"`
	Price       int64                         `gorm:"not null" json:"price"`
	Category    string                        `gorm:"size:100;index" json:"category"`
	Description string                        `gorm:"type:text" json:"description"`
	Images      datatypes.JSONSlice[MediaRef] `json:"images"`
	WeightGrams int                           `gorm:"default:1000" json:"weight_grams"`
	IsActive    bool                          `gorm:"not null" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShippingWeight is the per-unit weight used for courier quotes.
func (m *Merchandise) ShippingWeight() int {
	if m.WeightGrams <= 0 {
		return DefaultWeightGrams
	}
	return m.WeightGrams
}
