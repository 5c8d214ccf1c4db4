package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"examroom/internal/domain"
	"examroom/internal/realtime"
)

type ClassroomRepository struct {
	db   *gorm.DB
	feed *realtime.Feed
}

func NewClassroomRepository(db *gorm.DB, feed *realtime.Feed) *ClassroomRepository {
	return &ClassroomRepository{db: db, feed: feed}
}

type classroomModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Building  string    `gorm:"column:building"`
	Capacity  int       `gorm:"column:capacity;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (classroomModel) TableName() string { return "classrooms" }

func toDomainClassroom(m classroomModel) domain.Classroom {
	return domain.Classroom{
		ID:        m.ID,
		Name:      m.Name,
		Building:  m.Building,
		Capacity:  m.Capacity,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (r *ClassroomRepository) Create(ctx context.Context, c *domain.Classroom) error {
	m := classroomModel{
		Name:      c.Name,
		Building:  c.Building,
		Capacity:  c.Capacity,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.NewCollaboratorError("create classroom", err)
	}
	*c = toDomainClassroom(m)
	publish(r.feed, collectionClassrooms)
	return nil
}

func (r *ClassroomRepository) GetByID(ctx context.Context, id int64) (*domain.Classroom, error) {
	var m classroomModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewCollaboratorError("get classroom", err)
	}
	c := toDomainClassroom(m)
	return &c, nil
}

func (r *ClassroomRepository) List(ctx context.Context) ([]domain.Classroom, error) {
	var rows []classroomModel
	if err := r.db.WithContext(ctx).Order("name, id").Find(&rows).Error; err != nil {
		return nil, domain.NewCollaboratorError("list classrooms", err)
	}

	out := make([]domain.Classroom, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainClassroom(m))
	}
	return out, nil
}

// Update merges name, building and capacity into the stored classroom.
func (r *ClassroomRepository) Update(ctx context.Context, c *domain.Classroom) error {
	tx := r.db.WithContext(ctx).
		Model(&classroomModel{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"name":       c.Name,
			"building":   c.Building,
			"capacity":   c.Capacity,
			"updated_at": c.UpdatedAt,
		})
	if tx.Error != nil {
		return domain.NewCollaboratorError("update classroom", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}

	publish(r.feed, collectionClassrooms)

	updated, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}

// Delete removes the classroom only; its bookings are left to the caller.
func (r *ClassroomRepository) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx).Delete(&classroomModel{}, id)
	if tx.Error != nil {
		return domain.NewCollaboratorError("delete classroom", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}

	publish(r.feed, collectionClassrooms)
	return nil
}

func (r *ClassroomRepository) Subscribe(onChange func([]domain.Classroom), onError func(error)) realtime.Disposer {
	return realtime.Watch(r.feed, collectionClassrooms, r.List, onChange, onError)
}
