package repository

import (
	"errors"
	"time"

	"homecare_manager/internal/apperrors"

	"gorm.io/gorm"
)

func notFound(err error, entity string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(entity, id)
	}
	return err
}

// TimeRange bounds a created_at query. Nil ends are open.
type TimeRange struct {
	From  *time.Time
	Until *time.Time
}

func (r TimeRange) apply(q *gorm.DB, column string) *gorm.DB {
	if r.From != nil {
		q = q.Where(column+" >= ?", *r.From)
	}
	if r.Until != nil {
		q = q.Where(column+" < ?", *r.Until)
	}
	return q
}
