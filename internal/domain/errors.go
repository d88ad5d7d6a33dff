package domain

import "errors"

var (
	// ErrValidation marks input that fails a domain invariant.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a lookup that matched no row.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a state transition that is no longer applicable.
	ErrConflict = errors.New("conflict")

	// ErrDuplicateOccurrence is returned when a dispatch record already
	// exists for an occurrence key. The idempotency guard is built on it.
	ErrDuplicateOccurrence = errors.New("duplicate occurrence")

	// ErrStoreUnavailable marks a claim or audit operation that could not
	// complete against the underlying store.
	ErrStoreUnavailable = errors.New("store unavailable")
)
