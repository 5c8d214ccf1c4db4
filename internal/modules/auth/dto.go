package auth

import "examroom/internal/domain"

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	// Role is teacher or student. Admins are created by the seed command.
	Role domain.UserRole `json:"role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserPublic struct {
	ID                 int64            `json:"id"`
	Role               domain.UserRole  `json:"role"`
	Name               string           `json:"name"`
	Email              string           `json:"email"`
	EnrolledSubjects   []domain.Subject `json:"enrolled_subjects,omitempty"`
	RegisteredSubjects []domain.Subject `json:"registered_subjects,omitempty"`
}

func toPublic(u *domain.User) UserPublic {
	return UserPublic{
		ID:                 u.ID,
		Role:               u.Role,
		Name:               u.Name,
		Email:              u.Email,
		EnrolledSubjects:   u.EnrolledSubjects,
		RegisteredSubjects: u.RegisteredSubjects,
	}
}

type AuthResponse struct {
	User      UserPublic `json:"user"`
	Token     string     `json:"token"`
	ExpiresIn int64      `json:"expires_in"`
}
