package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"examroom/internal/domain"
	"examroom/internal/realtime"
)

type UserRepository struct {
	db   *gorm.DB
	feed *realtime.Feed
}

func NewUserRepository(db *gorm.DB, feed *realtime.Feed) *UserRepository {
	return &UserRepository{db: db, feed: feed}
}

type userModel struct {
	ID                 int64                               `gorm:"column:id;primaryKey"`
	Email              string                              `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash       string                              `gorm:"column:password_hash;not null"`
	Role               string                              `gorm:"column:role;not null"`
	Name               string                              `gorm:"column:name;not null"`
	EnrolledSubjects   datatypes.JSONSlice[domain.Subject] `gorm:"column:enrolled_subjects"`
	RegisteredSubjects datatypes.JSONSlice[domain.Subject] `gorm:"column:registered_subjects"`
	CreatedAt          time.Time                           `gorm:"column:created_at"`
	UpdatedAt          time.Time                           `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func toDomainUser(m userModel) *domain.User {
	return &domain.User{
		ID:                 m.ID,
		Email:              m.Email,
		PasswordHash:       m.PasswordHash,
		Role:               domain.UserRole(m.Role),
		Name:               m.Name,
		EnrolledSubjects:   []domain.Subject(m.EnrolledSubjects),
		RegisteredSubjects: []domain.Subject(m.RegisteredSubjects),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	return userModel{
		ID:                 u.ID,
		Email:              strings.ToLower(strings.TrimSpace(u.Email)),
		PasswordHash:       u.PasswordHash,
		Role:               string(u.Role),
		Name:               u.Name,
		EnrolledSubjects:   subjectsOrEmpty(u.EnrolledSubjects),
		RegisteredSubjects: subjectsOrEmpty(u.RegisteredSubjects),
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func subjectsOrEmpty(list []domain.Subject) datatypes.JSONSlice[domain.Subject] {
	if list == nil {
		return datatypes.JSONSlice[domain.Subject]{}
	}
	return datatypes.JSONSlice[domain.Subject](list)
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.NewCollaboratorError("create user", err)
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewCollaboratorError("get user", err)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m userModel
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewCollaboratorError("get user by email", err)
	}
	return toDomainUser(m), nil
}

// ReplaceSubjects overwrites the user's subject list for their role with
// subjects. Teachers store enrolled subjects, students registered subjects.
func (r *UserRepository) ReplaceSubjects(ctx context.Context, userID int64, role domain.UserRole, subjects []domain.Subject, at time.Time) error {
	column := "enrolled_subjects"
	if role == domain.RoleStudent {
		column = "registered_subjects"
	}

	tx := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			column:       subjectsOrEmpty(subjects),
			"updated_at": at,
		})
	if tx.Error != nil {
		return domain.NewCollaboratorError("replace subjects", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}

	publish(r.feed, collectionUsers)
	return nil
}

// Watch keeps one user's record live, so subject-scoped views can follow
// changes to the subject list.
func (r *UserRepository) Watch(userID int64, onChange func(*domain.User), onError func(error)) realtime.Disposer {
	return realtime.Watch(r.feed, collectionUsers, func(ctx context.Context) (*domain.User, error) {
		return r.GetByID(ctx, userID)
	}, onChange, onError)
}
