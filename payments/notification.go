package payments

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

type Outcome string

const (
	OutcomePaid      Outcome = "paid"
	OutcomePending   Outcome = "pending"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeIgnored   Outcome = "ignored"
)

// Notification is the HTTP notification body Midtrans posts after a
// transaction changes state.
type Notification struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
}

// Signature is SHA512(order_id + status_code + gross_amount + server_key).
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func (n *Notification) Verify(serverKey string) bool {
	if n.SignatureKey == "" || serverKey == "" {
		return false
	}
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	got := strings.ToLower(n.SignatureKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func (n *Notification) Outcome() Outcome {
	return MapOutcome(n.TransactionStatus, n.FraudStatus)
}

// MapOutcome folds Midtrans transaction and fraud statuses into the outcomes
// the order and registration lifecycles understand.
func MapOutcome(transactionStatus, fraudStatus string) Outcome {
	switch strings.ToLower(transactionStatus) {
	case "settlement":
		return OutcomePaid
	case "capture":
		switch strings.ToLower(fraudStatus) {
		case "", "accept":
			return OutcomePaid
		case "deny":
			return OutcomeFailed
		default:
			return OutcomePending
		}
	case "pending", "authorize":
		return OutcomePending
	case "deny", "failure":
		return OutcomeFailed
	case "cancel", "expire":
		return OutcomeCancelled
	default:
		return OutcomeIgnored
	}
}
