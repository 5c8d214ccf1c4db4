package enrollment

import "examroom/internal/domain"

type AddSubjectRequest struct {
	SubjectNumber    string `json:"subject_number" validate:"required,max=32"`
	SubjectName      string `json:"subject_name" validate:"max=200"`
	SubjectSubNumber string `json:"subject_sub_number" validate:"max=32"`
}

func (r AddSubjectRequest) toSubject() domain.Subject {
	return domain.Subject{
		SubjectNumber:    r.SubjectNumber,
		SubjectName:      r.SubjectName,
		SubjectSubNumber: r.SubjectSubNumber,
	}
}

type SubjectsResponse struct {
	Role     domain.UserRole  `json:"role"`
	Subjects []domain.Subject `json:"subjects"`
}
