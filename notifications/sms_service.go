package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SMSService posts messages to a token authenticated HTTP SMS/WhatsApp
// gateway that accepts form fields target and message.
type SMSService struct {
	apiURL string
	token  string
	client *http.Client
	log    zerolog.Logger
}

func NewSMSService(apiURL, token string, log zerolog.Logger) *SMSService {
	log = log.With().Str("component", "sms").Logger()
	if apiURL == "" || token == "" {
		log.Warn().Msg("SMS gateway not configured, OTP codes will only be logged")
	}
	return &SMSService{
		apiURL: apiURL,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

func (s *SMSService) SendSMS(ctx context.Context, phone, message string) error {
	if s.apiURL == "" || s.token == "" {
		s.log.Info().Str("phone", phone).Str("message", message).Msg("SMS gateway disabled, message not sent")
		return nil
	}

	form := url.Values{}
	form.Set("target", phone)
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", s.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SMS gateway returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
