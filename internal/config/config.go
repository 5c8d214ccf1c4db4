package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"examroom/internal/pkg/timeslot"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	defaultAppEnv            = "dev"
	defaultHTTPAddr          = ":8080"
	defaultDatabaseURL       = "examroom.db"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultJWTTTL            = "24h"
	defaultOpenHour          = "8"
	defaultCloseHour         = "18"
	defaultSlotStepMinutes   = "30"
	defaultAtomicCreate      = "true"
	defaultExpirePendingCron = "@every 1h"
)

type Config struct {
	AppEnv       string
	HTTPAddr     string
	DatabaseURL  string
	JWTSecret    string
	JWTTTL       time.Duration
	Hours        timeslot.OperatingHours
	AtomicCreate bool
	// ExpirePendingCron is a cron spec; empty disables the job.
	ExpirePendingCron  string
	CORSAllowedOrigins []string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:      strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", defaultAppEnv))),
		HTTPAddr:    strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr)),
		DatabaseURL: strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL)),
		JWTSecret:   strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret)),
	}

	var err error
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}

	if cfg.Hours.OpenHour, err = parseIntEnv("OPEN_HOUR", defaultOpenHour); err != nil {
		return nil, err
	}
	if cfg.Hours.CloseHour, err = parseIntEnv("CLOSE_HOUR", defaultCloseHour); err != nil {
		return nil, err
	}
	if cfg.Hours.StepMinutes, err = parseIntEnv("SLOT_STEP_MINUTES", defaultSlotStepMinutes); err != nil {
		return nil, err
	}

	cfg.AtomicCreate = parseBoolEnv("BOOKING_ATOMIC_CREATE", defaultAtomicCreate)
	cfg.ExpirePendingCron = strings.TrimSpace(getEnvAllowEmpty("EXPIRE_PENDING_CRON", defaultExpirePendingCron))

	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool { return isProdLike(c.AppEnv) }

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if err := cfg.Hours.Validate(); err != nil {
		return fmt.Errorf("OPEN_HOUR/CLOSE_HOUR/SLOT_STEP_MINUTES: %w", err)
	}
	if cfg.ExpirePendingCron != "" {
		if _, err := cron.ParseStandard(cfg.ExpirePendingCron); err != nil {
			return fmt.Errorf("invalid EXPIRE_PENDING_CRON %q: %w", cfg.ExpirePendingCron, err)
		}
	}

	if isProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// getEnvAllowEmpty distinguishes an unset variable from one set to "".
func getEnvAllowEmpty(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}
