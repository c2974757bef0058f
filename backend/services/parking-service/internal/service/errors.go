package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates malformed or missing input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMeterNotFound indicates the meter does not exist.
	ErrMeterNotFound = errors.New("meter not found")
	// ErrNoMeters is the empty result of listing meters.
	ErrNoMeters = errors.New("no meters found")
	// ErrAlreadyOccupied rejects an occupy request on an occupied meter.
	ErrAlreadyOccupied = errors.New("meter is already occupied")
	// ErrNotOccupied rejects a vacate request on a free meter.
	ErrNotOccupied = errors.New("meter is not occupied")
	// ErrPlateMismatch rejects a vacate request for a plate other than the parked one.
	ErrPlateMismatch = errors.New("existing parked car")
	// ErrSessionNotFound indicates no such (open) parking session.
	ErrSessionNotFound = errors.New("parking session not found")
	// ErrNoSessions is the empty result of a session query.
	ErrNoSessions = errors.New("no parking sessions found")
	// ErrCarNotFound indicates no such car for the user.
	ErrCarNotFound = errors.New("car not found")
	// ErrNoCars is the empty result of listing a user's cars.
	ErrNoCars = errors.New("no cars found")
	// ErrCarExists rejects registering a plate that is already registered.
	ErrCarExists = errors.New("car already exists")
)

// PersistenceError wraps an underlying storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
