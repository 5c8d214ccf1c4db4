package domain

import "time"

type Classroom struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Building  string    `json:"building,omitempty"`
	Capacity  int       `json:"capacity" validate:"required,gt=0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
