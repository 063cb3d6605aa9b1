package store

import "errors"

var (
	// ErrNotFound reports that no row matched the query.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a uniqueness-constraint violation, e.g. a second
	// daily task insert for the same (user, date).
	ErrConflict = errors.New("conflict")
)
