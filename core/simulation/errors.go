package simulation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when the run parameters are rejected.
	ErrInvalidInput = errors.New("invalid simulation inputs")
	// ErrInsufficientDrivers is returned when fewer drivers exist than requested.
	ErrInsufficientDrivers = errors.New("insufficient drivers")
)

// InputError describes which parameter was rejected. It matches
// ErrInvalidInput with errors.Is.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// InsufficientDriversError carries the requested and available driver counts.
// It matches ErrInsufficientDrivers with errors.Is.
type InsufficientDriversError struct {
	Requested int
	Available int
}

func (e *InsufficientDriversError) Error() string {
	return fmt.Sprintf("only %d drivers available, %d requested", e.Available, e.Requested)
}

func (e *InsufficientDriversError) Is(target error) bool { return target == ErrInsufficientDrivers }
