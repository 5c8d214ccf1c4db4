package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not_found")

// CollaboratorError carries a failure of the storage layer. The message is the
// store's own, unchanged.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string { return e.Err.Error() }

func (e *CollaboratorError) Unwrap() error { return e.Err }

func NewCollaboratorError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return err
	}
	return &CollaboratorError{Op: op, Err: err}
}

// OverlapError is returned by stores that enforce the no-overlap invariant at
// write time. Existing is nil when the store only knows that a constraint fired.
type OverlapError struct {
	Existing *Booking
}

func (e *OverlapError) Error() string {
	if e.Existing == nil {
		return "booking overlaps an existing booking"
	}
	return fmt.Sprintf("booking overlaps booking %d (%s %s-%s)",
		e.Existing.ID, e.Existing.Date, e.Existing.StartTime, e.Existing.EndTime)
}

// ErrStatusChanged means a conditional status update found the record in a
// different status than expected.
var ErrStatusChanged = errors.New("status changed concurrently")
