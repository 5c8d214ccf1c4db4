package enrollment

import (
	"strings"

	"examroom/internal/domain"
)

// AddSubject returns a copy of list with s appended. A record with the same
// number and sub-number already present is reported as ErrDuplicateSubject
// and list is returned unchanged.
func AddSubject(list []domain.Subject, s domain.Subject) ([]domain.Subject, error) {
	s = normalize(s)
	for _, existing := range list {
		if existing.Matches(s.SubjectNumber, s.SubjectSubNumber) {
			return list, ErrDuplicateSubject
		}
	}

	out := make([]domain.Subject, 0, len(list)+1)
	out = append(out, list...)
	return append(out, s), nil
}

// RemoveSubject returns a copy of list without records matching number and
// subNumber. Nothing matching is not an error.
func RemoveSubject(list []domain.Subject, number, subNumber string) []domain.Subject {
	number, subNumber = strings.TrimSpace(number), strings.TrimSpace(subNumber)

	out := make([]domain.Subject, 0, len(list))
	for _, s := range list {
		if s.Matches(number, subNumber) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func normalize(s domain.Subject) domain.Subject {
	s.SubjectNumber = strings.TrimSpace(s.SubjectNumber)
	s.SubjectName = strings.TrimSpace(s.SubjectName)
	s.SubjectSubNumber = strings.TrimSpace(s.SubjectSubNumber)
	return s
}
