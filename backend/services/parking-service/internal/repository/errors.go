package repository

import "errors"

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConditionFailed is returned when a guarded update matched no row because its
	// precondition (occupancy, plate, open flag) no longer holds.
	ErrConditionFailed = errors.New("repository: condition failed")
	// ErrConflict is returned when an insert collides with a unique value.
	ErrConflict = errors.New("repository: conflict")
)
