package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"examroom/internal/config"
	"examroom/internal/database"
	"examroom/internal/domain"
	"examroom/internal/modules/auth"
	"examroom/internal/pkg/logger"
	"examroom/internal/realtime"
	"examroom/internal/repository"
)

func main() {
	adminEmail := flag.String("admin-email", "admin@examroom.local", "admin login")
	adminPassword := flag.String("admin-password", "admin123", "admin password")
	withSamples := flag.Bool("samples", true, "also create sample classrooms and users")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx := context.Background()
	db, err := database.ConnectWithLogger(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("DB connection failed", zap.Error(err))
	}
	if err := database.Migrate(ctx, db, cfg.DatabaseURL, lg, repository.Models()...); err != nil {
		lg.Fatal("migrate failed", zap.Error(err))
	}

	feed := realtime.NewFeed(nil)
	users := repository.NewUserRepository(db, feed)
	classrooms := repository.NewClassroomRepository(db, feed)

	lg.Info("creating users")
	ensureUser(ctx, lg, users, &domain.User{Email: *adminEmail, Role: domain.RoleAdmin, Name: "Administrator"}, *adminPassword)

	if !*withSamples {
		return
	}

	ensureUser(ctx, lg, users, &domain.User{
		Email: "teacher@examroom.local",
		Role:  domain.RoleTeacher,
		Name:  "Sample Teacher",
		EnrolledSubjects: []domain.Subject{
			{SubjectNumber: "CS101", SubjectName: "Introduction to Programming", SubjectSubNumber: "1"},
			{SubjectNumber: "MATH201", SubjectName: "Linear Algebra", SubjectSubNumber: "2"},
		},
	}, "teacher123")
	ensureUser(ctx, lg, users, &domain.User{
		Email: "student@examroom.local",
		Role:  domain.RoleStudent,
		Name:  "Sample Student",
		RegisteredSubjects: []domain.Subject{
			{SubjectNumber: "CS101", SubjectName: "Introduction to Programming", SubjectSubNumber: "1"},
		},
	}, "student123")

	existing, err := classrooms.List(ctx)
	if err != nil {
		lg.Fatal("list classrooms failed", zap.Error(err))
	}
	if len(existing) > 0 {
		lg.Info("classrooms already present, skipping", zap.Int("count", len(existing)))
		return
	}

	lg.Info("creating classrooms")
	now := time.Now()
	for _, c := range []domain.Classroom{
		{Name: "R1", Building: "Main", Capacity: 40},
		{Name: "R2", Building: "Main", Capacity: 30},
		{Name: "Hall A", Building: "North", Capacity: 120},
		{Name: "Lab 3", Building: "Engineering", Capacity: 24},
	} {
		c.CreatedAt, c.UpdatedAt = now, now
		if err := classrooms.Create(ctx, &c); err != nil {
			lg.Fatal("create classroom failed", zap.String("name", c.Name), zap.Error(err))
		}
	}
	lg.Info("seed completed")
}

func ensureUser(ctx context.Context, lg *zap.Logger, users *repository.UserRepository, u *domain.User, password string) {
	_, err := users.GetByEmail(ctx, u.Email)
	if err == nil {
		lg.Info("user exists, skipping", zap.String("email", u.Email))
		return
	}
	if !errors.Is(err, domain.ErrNotFound) {
		lg.Fatal("lookup user failed", zap.Error(err))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		lg.Fatal("hash password failed", zap.Error(err))
	}
	u.PasswordHash = hash
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt

	if err := users.Create(ctx, u); err != nil {
		lg.Fatal("create user failed", zap.String("email", u.Email), zap.Error(err))
	}
	lg.Info("user created", zap.String("email", u.Email), zap.String("role", string(u.Role)))
}
