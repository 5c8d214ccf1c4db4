package booking

import (
	"errors"

	"examroom/internal/domain"
)

// RoomConflictMessage is shown to users when a slot is taken.
const RoomConflictMessage = "classroom is already booked for the selected time"

var (
	ErrValidation              = errors.New("validation error")
	ErrMissingField            = errors.New("missing required field")
	ErrPastDate                = errors.New("date must not be in the past")
	ErrRoomConflict            = errors.New(RoomConflictMessage)
	ErrNotEnrolled             = errors.New("teacher is not enrolled in this subject")
	ErrForbidden               = errors.New("forbidden")
	ErrInvalidStatus           = errors.New("status must be approved or rejected")
	ErrInvalidStatusTransition = errors.New("invalid_status_transition")
	ErrNotFound                = domain.ErrNotFound
)

// ConflictError reports the booking that blocks a requested slot.
// errors.Is(err, ErrRoomConflict) holds for it.
type ConflictError struct {
	Conflicting *domain.Booking
}

func (e *ConflictError) Error() string { return RoomConflictMessage }

func (e *ConflictError) Unwrap() error { return ErrRoomConflict }
