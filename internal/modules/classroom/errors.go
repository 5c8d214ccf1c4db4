package classroom

import (
	"errors"

	"examroom/internal/domain"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrHasBookings = errors.New("classroom has active bookings")
	ErrNotFound    = domain.ErrNotFound
)

// ValidationError lists invalid request fields. It unwraps to ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return ErrValidation.Error() }

func (e *ValidationError) Unwrap() error { return ErrValidation }
