package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	NotificationProcessed = "processed"
	NotificationIgnored   = "ignored"
	NotificationFailed    = "failed"
)

// PaymentNotification keeps every gateway callback for audit and reconciliation.
type PaymentNotification struct {
	ID                uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Reference         string         `gorm:"size:64;not null;index" json:"reference"`
	TransactionStatus string         `gorm:"size:30" json:"transaction_status"`
	FraudStatus       string         `gorm:"size:30" json:"fraud_status"`
	Payload           datatypes.JSON `json:"payload"`
	Result            string         `gorm:"size:20" json:"result"`
	Error             *string        `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
