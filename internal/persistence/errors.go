package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("persistence: already exists")
	// ErrConstraintViolation is returned when a row violates a CHECK or NOT NULL constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a row references a missing parent.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)
