package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string

	JWTSecret    string
	JWTExpiresIn time.Duration

	LogLevel  string
	LogFormat string

	RateLimitRPS       float64
	RateLimitBurst     int
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int

	AdminEmail    string
	AdminPassword string
	SeedDemo      bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		ServerPort:    envOr("SERVER_PORT", "8080"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFormat:     envOr("LOG_FORMAT", "json"),
		AdminEmail:    envOr("ADMIN_EMAIL", "admin@grc.local"),
		AdminPassword: envOr("ADMIN_PASSWORD", "Admin123!"),
	}

	var errs []error
	if cfg.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is not set"))
	}
	if cfg.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is not set"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}

	var err error
	if cfg.JWTExpiresIn, err = time.ParseDuration(envOr("JWT_EXPIRES_IN", "168h")); err != nil {
		errs = append(errs, fmt.Errorf("JWT_EXPIRES_IN: %w", err))
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(envOr("RATE_LIMIT_RPS", "10"), 64); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: %w", err))
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(envOr("RATE_LIMIT_BURST", "100")); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST: %w", err))
	}
	if cfg.AuthRateLimitRPS, err = strconv.ParseFloat(envOr("AUTH_RATE_LIMIT_RPS", "1"), 64); err != nil {
		errs = append(errs, fmt.Errorf("AUTH_RATE_LIMIT_RPS: %w", err))
	}
	if cfg.AuthRateLimitBurst, err = strconv.Atoi(envOr("AUTH_RATE_LIMIT_BURST", "5")); err != nil {
		errs = append(errs, fmt.Errorf("AUTH_RATE_LIMIT_BURST: %w", err))
	}
	if cfg.SeedDemo, err = strconv.ParseBool(envOr("SEED_DEMO", "false")); err != nil {
		errs = append(errs, fmt.Errorf("SEED_DEMO: %w", err))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
