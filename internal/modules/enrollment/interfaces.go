package enrollment

import (
	"context"
	"time"

	"examroom/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ReplaceSubjects(ctx context.Context, userID int64, role domain.UserRole, subjects []domain.Subject, at time.Time) error
}
