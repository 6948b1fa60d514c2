package repository

import (
	"errors"
	"fmt"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"gorm.io/gorm"
)

// translate maps gorm's record-not-found to apperr.ErrNotFound.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return err
}
