package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when no document exists for a meeting id.
	ErrNotFound = errors.New("document not found")
)
