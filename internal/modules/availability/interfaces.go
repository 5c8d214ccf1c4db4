package availability

import (
	"context"

	"examroom/internal/domain"
)

type BookingRepository interface {
	Find(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
}

type ClassroomRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Classroom, error)
}
