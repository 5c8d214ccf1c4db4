// Command expire_pending runs one pass of the stale pending booking expiry,
// for use from an external scheduler when the API's own cron is disabled.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"examroom/internal/config"
	"examroom/internal/database"
	"examroom/internal/jobs"
	"examroom/internal/modules/booking"
	"examroom/internal/pkg/logger"
	"examroom/internal/realtime"
	"examroom/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.ConnectWithLogger(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("db connect failed", zap.Error(err))
	}
	if err := database.Migrate(ctx, db, cfg.DatabaseURL, lg, repository.Models()...); err != nil {
		lg.Fatal("migrate failed", zap.Error(err))
	}

	feed := realtime.NewFeed(lg)
	svc := booking.NewService(
		repository.NewBookingRepository(db, feed),
		repository.NewClassroomRepository(db, feed),
		repository.NewUserRepository(db, feed),
		cfg.Hours,
		lg,
	)

	n := jobs.RunPendingExpiry(ctx, svc, lg)
	lg.Info("expire_pending completed", zap.Int("rejected", n))
}
