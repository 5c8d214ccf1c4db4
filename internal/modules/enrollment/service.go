package enrollment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"examroom/internal/domain"

	"go.uber.org/zap"
)

// Service edits a user's subject list: enrolled subjects for teachers,
// registered subjects for students. Every change rewrites the whole list.
type Service struct {
	users  UserRepository
	now    func() time.Time
	logger *zap.Logger
}

func NewService(users UserRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, now: time.Now, logger: logger}
}

func (s *Service) List(ctx context.Context, userID int64) (*SubjectsResponse, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SubjectsResponse{Role: u.Role, Subjects: subjectsOf(u)}, nil
}

func (s *Service) Add(ctx context.Context, userID int64, subject domain.Subject) (*SubjectsResponse, error) {
	if strings.TrimSpace(subject.SubjectNumber) == "" {
		return nil, fmt.Errorf("%w: subject_number is required", ErrValidation)
	}

	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	list, err := AddSubject(subjectsOf(u), subject)
	if err != nil {
		return nil, err
	}
	if err := s.users.ReplaceSubjects(ctx, u.ID, u.Role, list, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("subject added",
		zap.Int64("user_id", u.ID),
		zap.String("subject_number", subject.SubjectNumber),
		zap.String("subject_sub_number", subject.SubjectSubNumber),
	)
	return &SubjectsResponse{Role: u.Role, Subjects: list}, nil
}

func (s *Service) Remove(ctx context.Context, userID int64, number, subNumber string) (*SubjectsResponse, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	before := subjectsOf(u)
	list := RemoveSubject(before, number, subNumber)
	if len(list) == len(before) {
		return &SubjectsResponse{Role: u.Role, Subjects: before}, nil
	}
	if err := s.users.ReplaceSubjects(ctx, u.ID, u.Role, list, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("subject removed", zap.Int64("user_id", u.ID), zap.String("subject_number", number))
	return &SubjectsResponse{Role: u.Role, Subjects: list}, nil
}

func (s *Service) load(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleTeacher && u.Role != domain.RoleStudent {
		return nil, ErrNoSubjectList
	}
	return u, nil
}

func subjectsOf(u *domain.User) []domain.Subject {
	list := u.Subjects()
	if list == nil {
		return []domain.Subject{}
	}
	return list
}
