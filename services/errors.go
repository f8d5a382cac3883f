package services

import (
	"errors"
	"fmt"

	"github.com/komunitas/platform/models"
	"gorm.io/gorm"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream service unavailable")

	ErrInvalidTransition = models.ErrInvalidTransition
	ErrStaleStatus       = models.ErrStaleStatus
)

func validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// lookup translates a store miss into ErrNotFound for the named entity.
func lookup(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}
