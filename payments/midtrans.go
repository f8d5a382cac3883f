package payments

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

const defaultCountry = "IDN"

// Midtrans talks to Snap for hosted checkout and to the Core API for
// transaction status lookups.
type Midtrans struct {
	snap snap.Client
	core coreapi.Client
}

func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{}
	m.snap.New(serverKey, env)
	m.core.New(serverKey, env)
	return m
}

func (m *Midtrans) CreateTransaction(req TransactionRequest) (*Transaction, error) {
	if req.GrossAmount <= 0 {
		return nil, errors.New("gross amount must be positive")
	}
	if req.Reference == "" {
		return nil, errors.New("reference is required")
	}

	resp, mErr := m.snap.CreateTransaction(buildSnapRequest(req))
	if mErr != nil {
		return nil, mErr
	}
	return &Transaction{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func (m *Midtrans) CheckStatus(reference string) (*StatusResult, error) {
	resp, mErr := m.core.CheckTransaction(reference)
	if mErr != nil {
		if mErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, reference)
		}
		return nil, mErr
	}
	return &StatusResult{
		Reference:         resp.OrderID,
		TransactionID:     resp.TransactionID,
		TransactionStatus: resp.TransactionStatus,
		FraudStatus:       resp.FraudStatus,
		StatusCode:        resp.StatusCode,
		GrossAmount:       resp.GrossAmount,
	}, nil
}

func buildSnapRequest(req TransactionRequest) *snap.Request {
	cust := req.Customer
	detail := &midtrans.CustomerDetails{
		FName: cust.FirstName,
		LName: cust.LastName,
		Email: cust.Email,
		Phone: cust.Phone,
	}
	if cust.Address != nil {
		addr := &midtrans.CustomerAddress{
			FName:       cust.FirstName,
			LName:       cust.LastName,
			Phone:       cust.Phone,
			Address:     cust.Address.Address,
			City:        cust.Address.City,
			Postcode:    cust.Address.Postcode,
			CountryCode: defaultCountry,
		}
		detail.BillAddr = addr
		detail.ShipAddr = addr
	}

	items := make([]midtrans.ItemDetails, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, midtrans.ItemDetails{
			ID:       it.ID,
			Name:     truncate(it.Name, 50),
			Price:    it.Price,
			Qty:      it.Quantity,
			Category: it.Category,
		})
	}

	sr := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: req.GrossAmount,
		},
		CustomerDetail: detail,
		Items:          &items,
	}
	// Snap redirects every outcome to the finish URL with transaction_status in
	// the query; the frontend picks its error and pending pages from there.
	if req.Callbacks.Finish != "" {
		sr.Callbacks = &snap.Callbacks{Finish: req.Callbacks.Finish}
	}
	return sr
}

// truncate keeps at most n characters of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
