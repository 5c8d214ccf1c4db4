package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date. PostgreSQL runs the versioned goose
// migrations (which also install the overlap exclusion constraint); SQLite,
// used for local development and tests, is auto-migrated from models.
func Migrate(ctx context.Context, db *gorm.DB, dsn string, logger *zap.Logger, models ...any) error {
	if !IsPostgres(dsn) {
		if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("sqlite schema migrated")
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}
	logger.Info("migrations applied", zap.Int64("version", version))
	return nil
}
