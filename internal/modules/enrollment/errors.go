package enrollment

import (
	"errors"

	"examroom/internal/domain"
)

var (
	ErrDuplicateSubject = errors.New("subject is already in the list")
	ErrValidation       = errors.New("validation error")
	ErrNoSubjectList    = errors.New("this role has no subject list")
	ErrNotFound         = domain.ErrNotFound
)
