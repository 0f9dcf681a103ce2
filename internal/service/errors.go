package service

import (
	"errors"

	"natours/api/internal/apperr"
	"natours/api/internal/repository"
)

// storeError classifies a repository failure. notFound is the client message used
// when the record does not exist.
func storeError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, repository.ErrInvalidID):
		return apperr.Validation("Invalid id")
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("Duplicate field value. Please use another value!")
	}
	return apperr.Internal("storage failure", err)
}
