package common

import (
	"errors"
	"net/http"
)

// Sentinel errors for the dispatcher's failure taxonomy. Repositories
// and services wrap these with context; handlers map them to HTTP codes
// with errors.Is.
var (
	// ErrValidation covers missing or malformed input. No state is
	// mutated when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers references to queues, counters or tickets
	// that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition covers ticket state-machine violations,
	// e.g. skipping a ticket that is already SERVING or terminal.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// HTTPStatus maps a service error onto the HTTP code handlers return.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

