package booking

import (
	"context"
	"time"

	"examroom/internal/domain"
	"examroom/internal/pkg/jwt"
	"examroom/internal/realtime"
)

// BookingRepository is the persistence and change-notification side of the
// bookings collection.
type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	CreateIfFree(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	Find(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, expected, status domain.BookingStatus, at time.Time) error
	Delete(ctx context.Context, id int64) error
	Subscribe(filter domain.BookingFilter, onChange func([]domain.Booking), onError func(error)) realtime.Disposer
}

type ClassroomRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Classroom, error)
}

// UserRepository is the identity side: who is acting and which subjects they hold.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Watch(userID int64, onChange func(*domain.User), onError func(error)) realtime.Disposer
}

type TokenValidator interface {
	ValidateToken(tokenStr string) (*jwt.Claims, error)
}
