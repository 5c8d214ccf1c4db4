package domain

import "time"

type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingApproved BookingStatus = "approved"
	BookingRejected BookingStatus = "rejected"
)

// Active reports whether the booking still holds its slot.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingApproved
}

func (s BookingStatus) Valid() bool {
	return s == BookingPending || s == BookingApproved || s == BookingRejected
}

// ActiveStatuses are the statuses that take part in overlap checks.
var ActiveStatuses = []BookingStatus{BookingPending, BookingApproved}

type Booking struct {
	ID               int64         `json:"id"`
	ClassroomID      int64         `json:"classroom_id"`
	Date             string        `json:"date"`
	StartTime        string        `json:"start_time"`
	EndTime          string        `json:"end_time"`
	SubjectNumber    string        `json:"subject_number"`
	SubjectName      string        `json:"subject_name"`
	SubjectSubNumber string        `json:"subject_sub_number,omitempty"`
	TeacherID        int64         `json:"teacher_id"`
	TeacherName      string        `json:"teacher_name"`
	Status           BookingStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// BookingFilter describes a read over the bookings collection.
// Zero-valued fields are not applied.
type BookingFilter struct {
	ClassroomID      int64
	Date             string
	DateBefore       string
	TeacherID        int64
	SubjectNumber    string
	SubjectSubNumber *string
	Statuses         []BookingStatus
}
