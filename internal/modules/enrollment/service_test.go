package enrollment

import (
	"context"
	"testing"

	"examroom/internal/database"
	"examroom/internal/domain"
	"examroom/internal/realtime"
	"examroom/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*Service, *repository.UserRepository) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db, ":memory:", zap.NewNop(), repository.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	users := repository.NewUserRepository(db, realtime.NewFeed(nil))
	return NewService(users, zap.NewNop()), users
}

func createUser(t *testing.T, users *repository.UserRepository, email string, role domain.UserRole) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "x", Role: role, Name: email}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestService_TeacherSubjects(t *testing.T) {
	svc, users := setup(t)
	ctx := context.Background()
	teacher := createUser(t, users, "t@uni.edu", domain.RoleTeacher)

	res, err := svc.List(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Subjects)

	_, err = svc.Add(ctx, teacher.ID, domain.Subject{SubjectNumber: "CS101", SubjectName: "Intro", SubjectSubNumber: "1"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, teacher.ID, domain.Subject{SubjectNumber: "CS101", SubjectSubNumber: "1"})
	assert.ErrorIs(t, err, ErrDuplicateSubject)

	stored, err := users.GetByID(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, stored.EnrolledSubjects, 1)
	assert.Equal(t, "Intro", stored.EnrolledSubjects[0].SubjectName)
	assert.Empty(t, stored.RegisteredSubjects)

	res, err = svc.Remove(ctx, teacher.ID, "CS101", "1")
	require.NoError(t, err)
	assert.Empty(t, res.Subjects)

	_, err = svc.Remove(ctx, teacher.ID, "CS101", "1")
	assert.NoError(t, err)
}

func TestService_StudentSubjectsGoToRegisteredList(t *testing.T) {
	svc, users := setup(t)
	ctx := context.Background()
	student := createUser(t, users, "s@uni.edu", domain.RoleStudent)

	_, err := svc.Add(ctx, student.ID, domain.Subject{SubjectNumber: "MA200"})
	require.NoError(t, err)

	stored, err := users.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Subject{{SubjectNumber: "MA200"}}, stored.RegisteredSubjects)
	assert.Empty(t, stored.EnrolledSubjects)
}

func TestService_Errors(t *testing.T) {
	svc, users := setup(t)
	ctx := context.Background()
	admin := createUser(t, users, "a@uni.edu", domain.RoleAdmin)

	_, err := svc.List(ctx, admin.ID)
	assert.ErrorIs(t, err, ErrNoSubjectList)

	_, err = svc.List(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Add(ctx, admin.ID, domain.Subject{})
	assert.ErrorIs(t, err, ErrValidation)
}
