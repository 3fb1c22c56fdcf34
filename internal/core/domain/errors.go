package domain

import "errors"

var (
	// ErrValidation marks input rejected before any store call is made.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable wraps any failure of the document store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when an editor operation is not allowed in its current mode.
	ErrInvalidState = errors.New("operation not allowed in current state")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
