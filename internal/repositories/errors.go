package repository

import (
	"errors"

	"gorm.io/gorm"

	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
)

// translate turns driver and gorm failures into tagged application errors.
// notFound is returned for missing records; pass nil where a missing record
// cannot happen.
func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.Exception
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.ErrDuplicate
	default:
		return apperrors.Unavailable(err)
	}
}
