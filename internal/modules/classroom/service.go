package classroom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"examroom/internal/domain"
	"examroom/internal/pkg/validator"

	"go.uber.org/zap"
)

type Service struct {
	classrooms ClassroomRepository
	bookings   BookingCounter
	now        func() time.Time
	logger     *zap.Logger
}

func NewService(classrooms ClassroomRepository, bookings BookingCounter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{classrooms: classrooms, bookings: bookings, now: time.Now, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]domain.Classroom, error) {
	return s.classrooms.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Classroom, error) {
	return s.classrooms.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, req ClassroomRequest) (*domain.Classroom, error) {
	c, err := s.build(req)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = c.UpdatedAt

	if err := s.classrooms.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("classroom created", zap.Int64("classroom_id", c.ID), zap.String("name", c.Name))
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, req ClassroomRequest) (*domain.Classroom, error) {
	c, err := s.build(req)
	if err != nil {
		return nil, err
	}
	c.ID = id

	if err := s.classrooms.Update(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("classroom updated", zap.Int64("classroom_id", id))
	return c, nil
}

// Delete refuses to remove a classroom that still has pending or approved
// bookings, since those would be left pointing at nothing.
func (s *Service) Delete(ctx context.Context, id int64) error {
	active, err := s.bookings.Find(ctx, domain.BookingFilter{
		ClassroomID: id,
		Statuses:    domain.ActiveStatuses,
	})
	if err != nil {
		return err
	}
	if len(active) > 0 {
		return fmt.Errorf("%w: %d", ErrHasBookings, len(active))
	}

	if err := s.classrooms.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("classroom deleted", zap.Int64("classroom_id", id))
	return nil
}

func (s *Service) build(req ClassroomRequest) (*domain.Classroom, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Building = strings.TrimSpace(req.Building)
	if errs := validator.Validate(req); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}
	return &domain.Classroom{
		Name:      req.Name,
		Building:  req.Building,
		Capacity:  req.Capacity,
		UpdatedAt: s.now(),
	}, nil
}
