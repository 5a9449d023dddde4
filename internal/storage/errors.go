package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested object or watermark does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a curated row for the same
	// (run_id, date, column) already exists. Curated runs are append-only.
	ErrDuplicateKey = errors.New("duplicate key: curated runs are append-only")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
