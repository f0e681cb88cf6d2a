package service

import (
	"errors"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

// notFound translates a gorm record miss into the typed domain error so
// handlers render a stable ENTITY_NOT_FOUND envelope. A row in another
// tenant and a row that does not exist are indistinguishable.
func notFound(err error, entityType string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewEntityNotFound(entityType)
	}
	return err
}

// isNotFound reports whether err is a gorm record miss
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
