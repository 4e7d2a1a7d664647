package repositories

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrSystemTemplate is returned when a mutation targets a system-owned
	// template. The guard lives at the store boundary; readers never
	// re-check it.
	ErrSystemTemplate = errors.New("system templates cannot be modified or deleted")
)
