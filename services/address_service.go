package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/utils"
)

type AddressStore interface {
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
	CountAddresses(ctx context.Context, userID uuid.UUID) (int64, error)
	CreateAddress(ctx context.Context, address *models.Address) error
	SaveAddress(ctx context.Context, address *models.Address) error
	DeleteAddress(ctx context.Context, userID, id uuid.UUID) error
	SetDefaultAddress(ctx context.Context, userID, id uuid.UUID) error
}

type AddressInput struct {
	RecipientName string
	Phone         string
	Street        string
	District      string
	City          string
	Province      string
	PostalCode    string
	IsDefault     bool
}

type AddressService struct {
	store AddressStore
}

func NewAddressService(store AddressStore) *AddressService {
	return &AddressService{store: store}
}

func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	return s.store.ListAddresses(ctx, userID)
}

// Create stores a new address. The first address a user adds becomes the
// default.
func (s *AddressService) Create(ctx context.Context, userID uuid.UUID, in AddressInput) (*models.Address, error) {
	address := &models.Address{UserID: userID}
	if err := applyAddress(address, in); err != nil {
		return nil, err
	}

	count, err := s.store.CountAddresses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count addresses: %w", err)
	}
	makeDefault := in.IsDefault || count == 0
	address.IsDefault = false

	if err := s.store.CreateAddress(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}
	if makeDefault {
		if err := s.store.SetDefaultAddress(ctx, userID, address.ID); err != nil {
			return nil, fmt.Errorf("failed to set default address: %w", err)
		}
		address.IsDefault = true
	}
	return address, nil
}

func (s *AddressService) Update(ctx context.Context, userID, id uuid.UUID, in AddressInput) (*models.Address, error) {
	address, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	wasDefault := address.IsDefault
	if err := applyAddress(address, in); err != nil {
		return nil, err
	}
	address.IsDefault = wasDefault
	if err := s.store.SaveAddress(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}
	if in.IsDefault && !wasDefault {
		if err := s.store.SetDefaultAddress(ctx, userID, id); err != nil {
			return nil, fmt.Errorf("failed to set default address: %w", err)
		}
		address.IsDefault = true
	}
	return address, nil
}

func (s *AddressService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.DeleteAddress(ctx, userID, id); err != nil {
		return lookup(err, "address")
	}
	return nil
}

func (s *AddressService) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.SetDefaultAddress(ctx, userID, id); err != nil {
		return lookup(err, "address")
	}
	return nil
}

func (s *AddressService) owned(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	address, err := s.store.GetAddress(ctx, id)
	if err != nil {
		return nil, lookup(err, "address")
	}
	if address.UserID != userID {
		return nil, fmt.Errorf("%w: address", ErrNotFound)
	}
	return address, nil
}

func applyAddress(a *models.Address, in AddressInput) error {
	phone, err := utils.NormalizePhone(in.Phone)
	if err != nil {
		return validation("recipient phone is not a valid mobile number")
	}
	postal := strings.TrimSpace(in.PostalCode)
	if len(postal) != 5 || strings.Trim(postal, "0123456789") != "" {
		return validation("postal code must be 5 digits")
	}
	a.RecipientName = strings.TrimSpace(in.RecipientName)
	a.Phone = phone
	a.Street = strings.TrimSpace(in.Street)
	a.District = strings.TrimSpace(in.District)
	a.City = strings.TrimSpace(in.City)
	a.Province = strings.TrimSpace(in.Province)
	a.PostalCode = postal
	if a.RecipientName == "" || a.Street == "" || a.City == "" || a.Province == "" {
		return validation("recipient name, street, city and province are required")
	}
	return nil
}
