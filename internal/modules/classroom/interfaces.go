package classroom

import (
	"context"

	"examroom/internal/domain"
	"examroom/internal/pkg/jwt"
	"examroom/internal/realtime"
)

type ClassroomRepository interface {
	Create(ctx context.Context, c *domain.Classroom) error
	GetByID(ctx context.Context, id int64) (*domain.Classroom, error)
	List(ctx context.Context) ([]domain.Classroom, error)
	Update(ctx context.Context, c *domain.Classroom) error
	Delete(ctx context.Context, id int64) error
	Subscribe(onChange func([]domain.Classroom), onError func(error)) realtime.Disposer
}

// BookingCounter tells whether a classroom is still referenced by bookings.
type BookingCounter interface {
	Find(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
}

type TokenValidator interface {
	ValidateToken(tokenStr string) (*jwt.Claims, error)
}
