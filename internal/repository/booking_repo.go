package repository

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"examroom/internal/domain"
	"examroom/internal/pkg/timeslot"
	"examroom/internal/realtime"
)

// exclusion_violation, raised by bookings_no_overlap on PostgreSQL.
const pgExclusionViolation = "23P01"

type BookingRepository struct {
	db   *gorm.DB
	feed *realtime.Feed
}

func NewBookingRepository(db *gorm.DB, feed *realtime.Feed) *BookingRepository {
	return &BookingRepository{db: db, feed: feed}
}

type bookingModel struct {
	ID               int64     `gorm:"column:id;primaryKey"`
	ClassroomID      int64     `gorm:"column:classroom_id;not null;index:idx_bookings_room_date"`
	Date             string    `gorm:"column:date;not null;index:idx_bookings_room_date"`
	StartTime        string    `gorm:"column:start_time;not null"`
	EndTime          string    `gorm:"column:end_time;not null"`
	StartMinute      int       `gorm:"column:start_minute;not null"`
	EndMinute        int       `gorm:"column:end_minute;not null"`
	SubjectNumber    string    `gorm:"column:subject_number;not null;index:idx_bookings_subject"`
	SubjectName      string    `gorm:"column:subject_name"`
	SubjectSubNumber string    `gorm:"column:subject_sub_number;index:idx_bookings_subject"`
	TeacherID        int64     `gorm:"column:teacher_id;not null;index"`
	TeacherName      string    `gorm:"column:teacher_name"`
	Status           string    `gorm:"column:status;not null"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (bookingModel) TableName() string { return "bookings" }

func toDomainBooking(m bookingModel) domain.Booking {
	return domain.Booking{
		ID:               m.ID,
		ClassroomID:      m.ClassroomID,
		Date:             m.Date,
		StartTime:        m.StartTime,
		EndTime:          m.EndTime,
		SubjectNumber:    m.SubjectNumber,
		SubjectName:      m.SubjectName,
		SubjectSubNumber: m.SubjectSubNumber,
		TeacherID:        m.TeacherID,
		TeacherName:      m.TeacherName,
		Status:           domain.BookingStatus(m.Status),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toBookingModel(b *domain.Booking) (bookingModel, error) {
	start, err := timeslot.ToMinutes(b.StartTime)
	if err != nil {
		return bookingModel{}, err
	}
	end, err := timeslot.ToMinutes(b.EndTime)
	if err != nil {
		return bookingModel{}, err
	}

	return bookingModel{
		ID:               b.ID,
		ClassroomID:      b.ClassroomID,
		Date:             b.Date,
		StartTime:        timeslot.FormatMinutes(start),
		EndTime:          timeslot.FormatMinutes(end),
		StartMinute:      start,
		EndMinute:        end,
		SubjectNumber:    b.SubjectNumber,
		SubjectName:      b.SubjectName,
		SubjectSubNumber: b.SubjectSubNumber,
		TeacherID:        b.TeacherID,
		TeacherName:      b.TeacherName,
		Status:           string(b.Status),
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}, nil
}

// Create inserts the booking as given. It performs no overlap check.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	m, err := toBookingModel(b)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return mapWriteError("create booking", err)
	}
	*b = toDomainBooking(m)
	publish(r.feed, collectionBookings)
	return nil
}

// CreateIfFree inserts the booking only if no active booking of the same
// classroom and date overlaps it. The check and the insert run in one
// transaction; on PostgreSQL an advisory lock per classroom+date serializes
// concurrent writers and the exclusion constraint backs it up.
func (r *BookingRepository) CreateIfFree(ctx context.Context, b *domain.Booking) error {
	m, err := toBookingModel(b)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", lockKey(m.ClassroomID, m.Date)).Error; err != nil {
				return err
			}
		}

		var existing []bookingModel
		err := tx.
			Where("classroom_id = ? AND date = ?", m.ClassroomID, m.Date).
			Where("status IN ?", statusStrings(domain.ActiveStatuses)).
			Where("start_minute < ? AND end_minute > ?", m.EndMinute, m.StartMinute).
			Order("start_minute").
			Limit(1).
			Find(&existing).Error
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			found := toDomainBooking(existing[0])
			return &domain.OverlapError{Existing: &found}
		}

		return tx.Create(&m).Error
	})
	if err != nil {
		var overlap *domain.OverlapError
		if errors.As(err, &overlap) {
			return err
		}
		return mapWriteError("create booking", err)
	}

	*b = toDomainBooking(m)
	publish(r.feed, collectionBookings)
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var m bookingModel
	err := r.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewCollaboratorError("get booking", err)
	}
	b := toDomainBooking(m)
	return &b, nil
}

// Find returns the bookings matching filter ordered by date, start time and id.
func (r *BookingRepository) Find(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	var rows []bookingModel
	err := applyBookingFilter(r.db.WithContext(ctx).Model(&bookingModel{}), filter).
		Order("date, start_minute, id").
		Find(&rows).Error
	if err != nil {
		return nil, domain.NewCollaboratorError("find bookings", err)
	}

	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainBooking(m))
	}
	return out, nil
}

// UpdateStatus moves a booking from expected to status. It returns
// domain.ErrNotFound for an unknown id and domain.ErrStatusChanged when the
// booking is no longer in the expected status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, expected, status domain.BookingStatus, at time.Time) error {
	tx := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": at,
		})
	if tx.Error != nil {
		return mapWriteError("update booking status", tx.Error)
	}
	if tx.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrStatusChanged
	}

	publish(r.feed, collectionBookings)
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx).Delete(&bookingModel{}, id)
	if tx.Error != nil {
		return domain.NewCollaboratorError("delete booking", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}

	publish(r.feed, collectionBookings)
	return nil
}

// Subscribe keeps filter's result live: onChange receives the full matching
// set now and after every write to the bookings collection.
func (r *BookingRepository) Subscribe(filter domain.BookingFilter, onChange func([]domain.Booking), onError func(error)) realtime.Disposer {
	return realtime.Watch(r.feed, collectionBookings, func(ctx context.Context) ([]domain.Booking, error) {
		return r.Find(ctx, filter)
	}, onChange, onError)
}

func applyBookingFilter(q *gorm.DB, f domain.BookingFilter) *gorm.DB {
	if f.ClassroomID != 0 {
		q = q.Where("classroom_id = ?", f.ClassroomID)
	}
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	}
	if f.DateBefore != "" {
		q = q.Where("date < ?", f.DateBefore)
	}
	if f.TeacherID != 0 {
		q = q.Where("teacher_id = ?", f.TeacherID)
	}
	if f.SubjectNumber != "" {
		q = q.Where("subject_number = ?", f.SubjectNumber)
	}
	if f.SubjectSubNumber != nil {
		q = q.Where("subject_sub_number = ?", *f.SubjectSubNumber)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(f.Statuses))
	}
	return q
}

func statusStrings(statuses []domain.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func lockKey(classroomID int64, date string) int64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "booking:%d:%s", classroomID, date)
	return int64(h.Sum64())
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
		return &domain.OverlapError{}
	}
	return domain.NewCollaboratorError(op, err)
}
