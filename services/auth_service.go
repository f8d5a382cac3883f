package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/utils"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	otpTTL         = 5 * time.Minute
	otpMaxAttempts = 5
	tokenTTL       = 72 * time.Hour
)

type AuthStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	CreateOTP(ctx context.Context, otp *models.OTPCode) error
	LatestOTP(ctx context.Context, phone string) (*models.OTPCode, error)
	SaveOTP(ctx context.Context, otp *models.OTPCode) error
	IsWhitelisted(ctx context.Context, phone string) (bool, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
	NewUser   bool         `json:"new_user"`
}

type ProfileUpdate struct {
	FullName          *string
	Email             *string
	ProfilePictureURL *string
}

// AuthService logs users in with one time codes sent to their phone.
type AuthService struct {
	store     AuthStore
	sms       SMSSender
	jwtSecret []byte
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(store AuthStore, sms SMSSender, jwtSecret string, log zerolog.Logger) *AuthService {
	return &AuthService{
		store:     store,
		sms:       sms,
		jwtSecret: []byte(jwtSecret),
		log:       log.With().Str("service", "auth").Logger(),
		now:       time.Now,
	}
}

func normalizePhone(raw string) (string, error) {
	phone, err := utils.NormalizePhone(raw)
	if err != nil {
		return "", validation("phone number must be an Indonesian mobile number")
	}
	return phone, nil
}

func (s *AuthService) RequestOTP(ctx context.Context, rawPhone string) error {
	phone, err := normalizePhone(rawPhone)
	if err != nil {
		return err
	}

	code, err := utils.GenerateOTPCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	otp := &models.OTPCode{
		Phone:     phone,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(otpTTL),
	}
	if err := s.store.CreateOTP(ctx, otp); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}

	msg := fmt.Sprintf("Kode masuk Anda: %s. Berlaku %d menit. Jangan berikan kode ini kepada siapa pun.", code, int(otpTTL.Minutes()))
	if err := s.sms.SendSMS(ctx, phone, msg); err != nil {
		s.log.Error().Err(err).Str("phone", phone).Msg("failed to deliver OTP")
		return fmt.Errorf("%w: could not send the code, try again later", ErrUpstream)
	}
	return nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, rawPhone, code string) (*LoginResult, error) {
	phone, err := normalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}

	invalid := fmt.Errorf("%w: code is invalid or expired", ErrUnauthorized)
	otp, err := s.store.LatestOTP(ctx, phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load code: %w", err)
	}
	if s.now().After(otp.ExpiresAt) {
		return nil, invalid
	}
	if otp.Attempts >= otpMaxAttempts {
		return nil, fmt.Errorf("%w: too many attempts, request a new code", ErrUnauthorized)
	}

	otp.Attempts++
	if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(strings.TrimSpace(code))) != nil {
		if err := s.store.SaveOTP(ctx, otp); err != nil {
			return nil, fmt.Errorf("failed to record attempt: %w", err)
		}
		return nil, invalid
	}

	now := s.now()
	otp.ConsumedAt = &now
	if err := s.store.SaveOTP(ctx, otp); err != nil {
		return nil, fmt.Errorf("failed to consume code: %w", err)
	}

	user, err := s.store.GetUserByPhone(ctx, phone)
	newUser := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &models.User{Phone: phone, Role: models.RoleMember, IsActive: true}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		newUser = true
		s.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	case err != nil:
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", ErrForbidden)
	}

	token, expires, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expires, User: user, NewUser: newUser}, nil
}

func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	expires := s.now().Add(tokenTTL)
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role,
		"exp":     expires.Unix(),
	}
	t, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create token: %w", err)
	}
	return t, expires, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, lookup(err, "user")
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileUpdate) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, lookup(err, "user")
	}
	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Email != nil {
		user.Email = optional(*in.Email)
	}
	if in.ProfilePictureURL != nil {
		user.ProfilePictureURL = optional(*in.ProfilePictureURL)
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// CheckWhitelist reports whether the user's phone may register for
// whitelist-only activities.
func (s *AuthService) CheckWhitelist(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, lookup(err, "user")
	}
	return s.store.IsWhitelisted(ctx, user.Phone)
}
