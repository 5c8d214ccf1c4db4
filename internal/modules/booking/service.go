package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"examroom/internal/domain"
	"examroom/internal/pkg/timeslot"

	"go.uber.org/zap"
)

type Service struct {
	bookings   BookingRepository
	classrooms ClassroomRepository
	users      UserRepository
	hours      timeslot.OperatingHours
	atomic     bool
	now        func() time.Time
	logger     *zap.Logger
}

type Option func(*Service)

// WithClock overrides the time source used for past-date checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAtomicCreate makes CreateBooking use the store's check-and-insert.
func WithAtomicCreate(enabled bool) Option {
	return func(s *Service) { s.atomic = enabled }
}

func NewService(
	bookings BookingRepository,
	classrooms ClassroomRepository,
	users UserRepository,
	hours timeslot.OperatingHours,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		bookings:   bookings,
		classrooms: classrooms,
		users:      users,
		hours:      hours,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking validates the request, checks that the teacher may book the
// subject and stores a pending booking if the slot is free.
func (s *Service) CreateBooking(ctx context.Context, actor Actor, req CreateBookingRequest) (*domain.Booking, error) {
	if s.atomic {
		return s.CreateBookingAtomic(ctx, actor, req)
	}

	b, err := s.prepare(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	// Read then write: two concurrent requests can both pass the check.
	existing, err := s.bookings.Find(ctx, domain.BookingFilter{
		ClassroomID: b.ClassroomID,
		Date:        b.Date,
		Statuses:    domain.ActiveStatuses,
	})
	if err != nil {
		return nil, err
	}

	res, err := CheckConflict(Proposal{
		ClassroomID: b.ClassroomID,
		Date:        b.Date,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
	}, existing)
	if err != nil {
		return nil, err
	}
	if res.HasConflict {
		return nil, &ConflictError{Conflicting: res.ConflictingBooking}
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, asConflict(err)
	}

	s.logger.Info("booking created",
		zap.Int64("booking_id", b.ID),
		zap.Int64("classroom_id", b.ClassroomID),
		zap.String("date", b.Date),
		zap.String("start", b.StartTime),
		zap.String("end", b.EndTime),
	)
	return b, nil
}

// CreateBookingAtomic is CreateBooking with the overlap check and the insert
// performed as one operation by the store.
func (s *Service) CreateBookingAtomic(ctx context.Context, actor Actor, req CreateBookingRequest) (*domain.Booking, error) {
	b, err := s.prepare(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	if err := s.bookings.CreateIfFree(ctx, b); err != nil {
		return nil, asConflict(err)
	}

	s.logger.Info("booking created",
		zap.Int64("booking_id", b.ID),
		zap.Int64("classroom_id", b.ClassroomID),
		zap.String("date", b.Date),
		zap.Bool("atomic", true),
	)
	return b, nil
}

// asConflict turns a store-level overlap, such as the exclusion constraint
// firing, into ErrRoomConflict.
func asConflict(err error) error {
	var overlap *domain.OverlapError
	if errors.As(err, &overlap) {
		return &ConflictError{Conflicting: overlap.Existing}
	}
	return err
}

func (s *Service) prepare(ctx context.Context, actor Actor, req CreateBookingRequest) (*domain.Booking, error) {
	if actor.Role != domain.RoleTeacher {
		return nil, ErrForbidden
	}

	req.SubjectNumber = strings.TrimSpace(req.SubjectNumber)
	req.SubjectSubNumber = strings.TrimSpace(req.SubjectSubNumber)
	if req.SubjectNumber == "" {
		return nil, fmt.Errorf("%w: subject_number", ErrMissingField)
	}

	p := Proposal{
		ClassroomID: req.ClassroomID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}
	window, err := s.validateProposal(p)
	if err != nil {
		return nil, err
	}

	teacher, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	subject, ok := findSubject(teacher.EnrolledSubjects, req.SubjectNumber, req.SubjectSubNumber)
	if !ok {
		return nil, ErrNotEnrolled
	}

	if _, err := s.classrooms.GetByID(ctx, req.ClassroomID); err != nil {
		return nil, err
	}

	name := subject.SubjectName
	if name == "" {
		name = strings.TrimSpace(req.SubjectName)
	}

	now := s.now()
	return &domain.Booking{
		ClassroomID:      req.ClassroomID,
		Date:             req.Date,
		StartTime:        window.StartTime(),
		EndTime:          window.EndTime(),
		SubjectNumber:    subject.SubjectNumber,
		SubjectName:      name,
		SubjectSubNumber: subject.SubjectSubNumber,
		TeacherID:        teacher.ID,
		TeacherName:      teacher.Name,
		Status:           domain.BookingPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// validateProposal is the single place where a requested slot is checked
// for presence, format, operating hours and date.
func (s *Service) validateProposal(p Proposal) (timeslot.Window, error) {
	if field := p.missingField(); field != "" {
		return timeslot.Window{}, fmt.Errorf("%w: %s", ErrMissingField, field)
	}

	day, err := timeslot.ParseDate(p.Date)
	if err != nil {
		return timeslot.Window{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if day.Before(today(s.now())) {
		return timeslot.Window{}, fmt.Errorf("%w: %w", ErrValidation, ErrPastDate)
	}

	window, err := timeslot.ValidateWindow(p.StartTime, p.EndTime, s.hours)
	if err != nil {
		return timeslot.Window{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return window, nil
}

func findSubject(list []domain.Subject, number, subNumber string) (domain.Subject, bool) {
	for _, subj := range list {
		if subj.Matches(number, subNumber) {
			return subj, true
		}
	}
	return domain.Subject{}, false
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CheckConflict answers whether a slot could be booked right now, without
// writing anything.
func (s *Service) CheckConflict(ctx context.Context, p Proposal) (ConflictResult, error) {
	window, err := s.validateProposal(p)
	if err != nil {
		return ConflictResult{}, err
	}
	p.StartTime, p.EndTime = window.StartTime(), window.EndTime()

	existing, err := s.bookings.Find(ctx, domain.BookingFilter{
		ClassroomID: p.ClassroomID,
		Date:        p.Date,
		Statuses:    domain.ActiveStatuses,
	})
	if err != nil {
		return ConflictResult{}, err
	}
	return CheckConflict(p, existing)
}

// SetStatus moves a pending booking to approved or rejected.
func (s *Service) SetStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	if status != domain.BookingApproved && status != domain.BookingRejected {
		return nil, fmt.Errorf("%w: %w", ErrValidation, ErrInvalidStatus)
	}

	err := s.bookings.UpdateStatus(ctx, id, domain.BookingPending, status, s.now())
	if errors.Is(err, domain.ErrStatusChanged) {
		return nil, ErrInvalidStatusTransition
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking status changed",
		zap.Int64("booking_id", id),
		zap.String("status", string(status)),
	)
	return s.bookings.GetByID(ctx, id)
}

// DeleteBooking removes a booking. Admins may delete any booking; teachers
// only their own pending ones.
func (s *Service) DeleteBooking(ctx context.Context, actor Actor, id int64) error {
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleTeacher:
		b, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if b.TeacherID != actor.UserID || b.Status != domain.BookingPending {
			return ErrForbidden
		}
	default:
		return ErrForbidden
	}

	if err := s.bookings.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("booking deleted", zap.Int64("booking_id", id), zap.Int64("actor_id", actor.UserID))
	return nil
}

// ListBookings returns what the actor's live view would show right now.
func (s *Service) ListBookings(ctx context.Context, actor Actor) ([]domain.Booking, error) {
	filter, err := s.filterForActor(ctx, actor)
	if err != nil {
		return nil, err
	}

	queries := filter.queries()
	m := newSnapshotMerger(len(queries))
	out := []domain.Booking{}
	for i, q := range queries {
		list, err := s.bookings.Find(ctx, q)
		if err != nil {
			return nil, err
		}
		out = m.apply(i, list)
	}
	return out, nil
}

func (s *Service) filterForActor(ctx context.Context, actor Actor) (SubscriptionFilter, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return AllBookings(), nil
	case domain.RoleTeacher:
		return ByTeacher(actor.UserID), nil
	case domain.RoleStudent:
		u, err := s.users.GetByID(ctx, actor.UserID)
		if err != nil {
			return SubscriptionFilter{}, err
		}
		return FilterForUser(u), nil
	}
	return SubscriptionFilter{}, ErrForbidden
}

// ExpireStalePending rejects pending bookings whose date has passed.
// It returns how many bookings were rejected.
func (s *Service) ExpireStalePending(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.bookings.Find(ctx, domain.BookingFilter{
		DateBefore: timeslot.FormatDate(now),
		Statuses:   []domain.BookingStatus{domain.BookingPending},
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, b := range stale {
		err := s.bookings.UpdateStatus(ctx, b.ID, domain.BookingPending, domain.BookingRejected, now)
		if errors.Is(err, domain.ErrStatusChanged) || errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("stale pending bookings rejected", zap.Int("count", expired))
	}
	return expired, nil
}

// Subscribe starts a live view of the bookings selected by filter.
func (s *Service) Subscribe(filter SubscriptionFilter) *Subscription {
	queries := filter.queries()
	sub := newSubscription(len(queries))
	if len(queries) == 0 {
		sub.publish([]domain.Booking{})
		return sub
	}

	for i, q := range queries {
		source := i
		d := s.bookings.Subscribe(q,
			func(list []domain.Booking) { sub.apply(source, list) },
			sub.fail,
		)
		sub.addDisposer(d)
	}
	return sub
}
