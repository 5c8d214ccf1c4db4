package booking

import "examroom/internal/domain"

type CreateBookingRequest struct {
	ClassroomID      int64  `json:"classroom_id"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	SubjectNumber    string `json:"subject_number"`
	SubjectName      string `json:"subject_name"`
	SubjectSubNumber string `json:"subject_sub_number"`
}

type CheckConflictRequest struct {
	ClassroomID int64  `json:"classroom_id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	ExcludeID   int64  `json:"exclude_id"`
}

type UpdateStatusRequest struct {
	Status domain.BookingStatus `json:"status" binding:"required"`
}

type ConflictResponse struct {
	HasConflict        bool            `json:"has_conflict"`
	Message            string          `json:"message,omitempty"`
	ConflictingBooking *domain.Booking `json:"conflicting_booking,omitempty"`
}

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	UserID int64
	Role   domain.UserRole
}
