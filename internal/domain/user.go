package domain

import "time"

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email" validate:"required,email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Name         string    `json:"name"`
	// EnrolledSubjects are the subjects a teacher may book exams for.
	EnrolledSubjects []Subject `json:"enrolled_subjects,omitempty"`
	// RegisteredSubjects are the subjects whose approved exams a student sees.
	RegisteredSubjects []Subject `json:"registered_subjects,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Subjects returns the subject list that belongs to the user's role.
func (u *User) Subjects() []Subject {
	if u.Role == RoleStudent {
		return u.RegisteredSubjects
	}
	return u.EnrolledSubjects
}

// IsEnrolledIn reports whether a teacher may book under the given subject section.
func (u *User) IsEnrolledIn(number, subNumber string) bool {
	for _, s := range u.EnrolledSubjects {
		if s.Matches(number, subNumber) {
			return true
		}
	}
	return false
}
