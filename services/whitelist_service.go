package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/utils"
)

type WhitelistStore interface {
	ListWhitelist(ctx context.Context, search string) ([]models.Whitelist, error)
	AddWhitelist(ctx context.Context, entries []models.Whitelist) (int64, error)
	DeleteWhitelist(ctx context.Context, id uuid.UUID) error
}

type WhitelistEntry struct {
	Phone string
	Name  string
	Note  string
}

// BulkResult reports how a bulk import went; Invalid lists rejected phones.
type BulkResult struct {
	Added   int64    `json:"added"`
	Skipped int64    `json:"skipped"`
	Invalid []string `json:"invalid"`
}

type WhitelistService struct {
	store WhitelistStore
}

func NewWhitelistService(store WhitelistStore) *WhitelistService {
	return &WhitelistService{store: store}
}

func (s *WhitelistService) List(ctx context.Context, search string) ([]models.Whitelist, error) {
	return s.store.ListWhitelist(ctx, strings.TrimSpace(search))
}

func (s *WhitelistService) Add(ctx context.Context, in WhitelistEntry) (*models.Whitelist, error) {
	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	entry := models.Whitelist{Phone: phone, Name: strings.TrimSpace(in.Name), Note: optional(in.Note)}
	added, err := s.store.AddWhitelist(ctx, []models.Whitelist{entry})
	if err != nil {
		return nil, fmt.Errorf("failed to add whitelist entry: %w", err)
	}
	if added == 0 {
		return nil, fmt.Errorf("%w: phone is already whitelisted", ErrConflict)
	}
	return &entry, nil
}

// AddBulk normalizes and de-duplicates entries before inserting; phones
// already on the list are skipped.
func (s *WhitelistService) AddBulk(ctx context.Context, in []WhitelistEntry) (*BulkResult, error) {
	res := &BulkResult{Invalid: []string{}}
	seen := make(map[string]bool, len(in))
	entries := make([]models.Whitelist, 0, len(in))
	for _, e := range in {
		phone, err := utils.NormalizePhone(e.Phone)
		if err != nil {
			res.Invalid = append(res.Invalid, e.Phone)
			continue
		}
		if seen[phone] {
			res.Skipped++
			continue
		}
		seen[phone] = true
		entries = append(entries, models.Whitelist{Phone: phone, Name: strings.TrimSpace(e.Name), Note: optional(e.Note)})
	}

	added, err := s.store.AddWhitelist(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to import whitelist: %w", err)
	}
	res.Added = added
	res.Skipped += int64(len(entries)) - added
	return res, nil
}

func (s *WhitelistService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteWhitelist(ctx, id); err != nil {
		return lookup(err, "whitelist entry")
	}
	return nil
}
