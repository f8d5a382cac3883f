package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FullName string    `gorm:"size:255" json:"full_name"`
	Phone    string    `gorm:"size:20;not null;unique" json:"phone"`
	Email    *string   `gorm:"size:255" json:"email"`
	Role     string    `gorm:"size:20;not null;default:'member'" json:"role"`
	IsActive bool      `gorm:"default:true" json:"is_active"`

	ProfilePictureURL *string `gorm:"type:text" json:"profile_picture_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Whitelist struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Phone string    `gorm:"size:20;not null;unique" json:"phone"`
	Name  string    `gorm:"size:255" json:"name"`
	Note  *string   `gorm:"type:text" json:"note"`

	CreatedAt time.Time `json:"created_at"`
}

type OTPCode struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Phone      string    `gorm:"size:20;not null;index"`
	CodeHash   string    `gorm:"size:255;not null"`
	ExpiresAt  time.Time `gorm:"not null"`
	Attempts   int       `gorm:"default:0"`
	ConsumedAt *time.Time

	CreatedAt time.Time
}
