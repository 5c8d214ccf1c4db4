package classroom

type ClassroomRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Building string `json:"building" validate:"max=100"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
}
