package domain

// Subject is an enrollment record. Number and SubNumber together identify a
// subject section; SubNumber may be empty.
type Subject struct {
	SubjectNumber    string `json:"subject_number" validate:"required"`
	SubjectName      string `json:"subject_name"`
	SubjectSubNumber string `json:"subject_sub_number,omitempty"`
}

func (s Subject) Matches(number, subNumber string) bool {
	return s.SubjectNumber == number && s.SubjectSubNumber == subNumber
}
