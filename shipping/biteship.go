// Package shipping quotes courier rates for merchandise deliveries.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Item struct {
	Name     string `json:"name"`
	Value    int64  `json:"value"`
	Weight   int    `json:"weight"`
	Quantity int    `json:"quantity"`
}

type Option struct {
	Company     string `json:"company"`
	CourierName string `json:"courier_name"`
	Service     string `json:"service"`
	Type        string `json:"type"`
	Price       int64  `json:"price"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// Resolver never fails: callers get an empty list when rates are unavailable.
type Resolver interface {
	GetOptions(ctx context.Context, originPostal, destinationPostal string, items []Item) []Option
}

type Biteship struct {
	baseURL  string
	apiKey   string
	couriers string
	client   *http.Client
	log      zerolog.Logger
}

func NewBiteship(baseURL, apiKey, couriers string, log zerolog.Logger) *Biteship {
	return &Biteship{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		couriers: couriers,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log.With().Str("component", "shipping").Logger(),
	}
}

type rateRequest struct {
	OriginPostalCode      int    `json:"origin_postal_code"`
	DestinationPostalCode int    `json:"destination_postal_code"`
	Couriers              string `json:"couriers"`
	Items                 []Item `json:"items"`
}

type rateResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Pricing []struct {
		Company            string `json:"company"`
		CourierName        string `json:"courier_name"`
		CourierServiceName string `json:"courier_service_name"`
		CourierServiceCode string `json:"courier_service_code"`
		Type               string `json:"type"`
		Price              int64  `json:"price"`
		Duration           string `json:"duration"`
		Description        string `json:"description"`
	} `json:"pricing"`
}

func (b *Biteship) GetOptions(ctx context.Context, originPostal, destinationPostal string, items []Item) []Option {
	options, err := b.fetch(ctx, originPostal, destinationPostal, items)
	if err != nil {
		b.log.Warn().Err(err).
			Str("origin", originPostal).
			Str("destination", destinationPostal).
			Msg("shipping rate lookup failed")
		return []Option{}
	}
	return options
}

func (b *Biteship) fetch(ctx context.Context, originPostal, destinationPostal string, items []Item) ([]Option, error) {
	origin, err := strconv.Atoi(strings.TrimSpace(originPostal))
	if err != nil {
		return nil, fmt.Errorf("invalid origin postal code %q", originPostal)
	}
	dest, err := strconv.Atoi(strings.TrimSpace(destinationPostal))
	if err != nil {
		return nil, fmt.Errorf("invalid destination postal code %q", destinationPostal)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no items to ship")
	}

	body, err := json.Marshal(rateRequest{
		OriginPostalCode:      origin,
		DestinationPostalCode: dest,
		Couriers:              b.couriers,
		Items:                 items,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/rates/couriers", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send rate request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var rr rateResponse
	if err := json.Unmarshal(respBody, &rr); err != nil {
		return nil, fmt.Errorf("failed to decode rate response: %w", err)
	}
	if !rr.Success {
		return nil, fmt.Errorf("rate API error: %s", rr.Error)
	}

	options := make([]Option, 0, len(rr.Pricing))
	for _, p := range rr.Pricing {
		service := p.CourierServiceCode
		if service == "" {
			service = p.CourierServiceName
		}
		options = append(options, Option{
			Company:     p.Company,
			CourierName: p.CourierName,
			Service:     service,
			Type:        p.Type,
			Price:       p.Price,
			Duration:    p.Duration,
			Description: p.Description,
		})
	}
	return options, nil
}
