package payments

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   *CustomerAddress
}

type CustomerAddress struct {
	Address  string
	City     string
	Postcode string
}

type Item struct {
	ID       string
	Name     string
	Price    int64
	Quantity int32
	Category string
}

// Callbacks holds the frontend page Snap sends the browser back to.
type Callbacks struct {
	Finish string
}

type TransactionRequest struct {
	Reference   string
	GrossAmount int64
	Customer    Customer
	Items       []Item
	Callbacks   Callbacks
}

type Transaction struct {
	Token       string
	RedirectURL string
}

type StatusResult struct {
	Reference         string
	TransactionID     string
	TransactionStatus string
	FraudStatus       string
	StatusCode        string
	GrossAmount       string
}

func (s *StatusResult) Outcome() Outcome {
	return MapOutcome(s.TransactionStatus, s.FraudStatus)
}

// Gateway creates hosted-checkout transactions and reports their status.
type Gateway interface {
	CreateTransaction(req TransactionRequest) (*Transaction, error)
	CheckStatus(reference string) (*StatusResult, error)
}

type ReferenceKind string

const (
	KindOrder        ReferenceKind = "order"
	KindRegistration ReferenceKind = "reg"
)

var ErrBadReference = errors.New("malformed payment reference")

// ErrTransactionNotFound reports that the gateway has no transaction for a
// reference, typically because the buyer never opened the payment page.
var ErrTransactionNotFound = errors.New("gateway has no such transaction")

func Reference(kind ReferenceKind, id uuid.UUID) string {
	return string(kind) + "-" + id.String()
}

// ParseReference splits "order-<uuid>" or "reg-<uuid>".
func ParseReference(ref string) (ReferenceKind, uuid.UUID, error) {
	kind, raw, ok := strings.Cut(ref, "-")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("%w: %q", ErrBadReference, ref)
	}
	k := ReferenceKind(kind)
	if k != KindOrder && k != KindRegistration {
		return "", uuid.Nil, fmt.Errorf("%w: unknown kind %q", ErrBadReference, kind)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: %v", ErrBadReference, err)
	}
	return k, id, nil
}
