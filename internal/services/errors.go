package services

import (
	"errors"

	"agora/internal/apperr"
	"agora/internal/repositories"
)

// lookupErr translates a repository read error: a missing record becomes
// a NotFound with the given message, anything else a storage failure.
func lookupErr(err error, notFoundMsg string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, err, "%s", notFoundMsg)
	}
	return apperr.Wrap(apperr.KindStorage, err, "data access failed")
}

// writeErr translates a repository write error the same way.
func writeErr(err error, notFoundMsg string) error {
	return lookupErr(err, notFoundMsg)
}
