package availability

import (
	"errors"

	"examroom/internal/domain"
)

var (
	ErrInvalidDuration  = errors.New("duration must be positive")
	ErrInvalidClassroom = errors.New("classroom id is required")
	ErrNotFound         = domain.ErrNotFound
)
