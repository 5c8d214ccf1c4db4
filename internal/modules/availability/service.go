package availability

import (
	"context"
	"math"
	"time"

	"examroom/internal/domain"
	"examroom/internal/pkg/timeslot"
)

// Service runs the engine over a snapshot read from the store on every call.
type Service struct {
	bookings   BookingRepository
	classrooms ClassroomRepository
	hours      timeslot.OperatingHours
	now        func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for the current-status view.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(bookings BookingRepository, classrooms ClassroomRepository, hours timeslot.OperatingHours, opts ...Option) *Service {
	s := &Service{bookings: bookings, classrooms: classrooms, hours: hours, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) snapshot(ctx context.Context, classroomID int64, date string) ([]domain.Booking, error) {
	if classroomID == 0 {
		return nil, ErrInvalidClassroom
	}
	if _, err := timeslot.ParseDate(date); err != nil {
		return nil, err
	}
	if _, err := s.classrooms.GetByID(ctx, classroomID); err != nil {
		return nil, err
	}
	return s.bookings.Find(ctx, domain.BookingFilter{
		ClassroomID: classroomID,
		Date:        date,
		Statuses:    domain.ActiveStatuses,
	})
}

func (s *Service) ExamPeriods(ctx context.Context, classroomID int64, date string, durationHours float64) (*PeriodsResponse, error) {
	if _, ok := timeslot.DurationMinutes(durationHours); !ok {
		return nil, ErrInvalidDuration
	}
	existing, err := s.snapshot(ctx, classroomID, date)
	if err != nil {
		return nil, err
	}

	periods, err := ComputeExamPeriods(existing, classroomID, date, durationHours, s.hours)
	if err != nil {
		return nil, err
	}
	return &PeriodsResponse{
		ClassroomID: classroomID,
		Date:        date,
		Duration:    durationHours,
		Periods:     periods,
		Summary:     ClassroomStatus(periods),
	}, nil
}

func (s *Service) Busy(ctx context.Context, classroomID int64, date string) (*BusyResponse, error) {
	existing, err := s.snapshot(ctx, classroomID, date)
	if err != nil {
		return nil, err
	}

	busy, err := BusyPeriods(existing, classroomID, date)
	if err != nil {
		return nil, err
	}

	slots, err := BusySlots(existing, classroomID, date)
	if err != nil {
		return nil, err
	}

	booked := BookedMinutes(s.hours, busy)
	day := (s.hours.CloseHour - s.hours.OpenHour) * 60
	occupancy := 0.0
	if day > 0 {
		occupancy = math.Round(float64(booked)/float64(day)*1000) / 1000
	}

	return &BusyResponse{
		ClassroomID:   classroomID,
		Date:          date,
		Busy:          slots,
		Free:          toSlots(FreeWindows(s.hours, busy)),
		BookedMinutes: booked,
		Occupancy:     occupancy,
		Current:       CurrentStatus(s.hours, date, busy, s.now()),
	}, nil
}
