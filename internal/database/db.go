package database

import (
	"context"
	"fmt"
	"time"

	"grc-isms/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	maxAttempts  = 10
	attemptDelay = 2 * time.Second
)

// Open connects to Postgres, retrying while the database is starting up.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	for i := 1; i <= maxAttempts; i++ {
		log.Info("connecting to database", zap.Int("attempt", i), zap.Int("of", maxAttempts))

		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         newGormLogger(log),
			TranslateError: true,
			NowFunc:        func() time.Time { return time.Now().UTC() },
		})
		if err == nil {
			log.Info("connected to database")
			return db, nil
		}

		log.Warn("database connection failed", zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(attemptDelay):
		}
	}

	return nil, fmt.Errorf("connect to db after %d attempts: %w", maxAttempts, err)
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Risk{},
		&models.Control{},
		&models.Audit{},
		&models.Finding{},
		&models.Policy{},
		&models.AuditLog{},
		&models.Notification{},
		&models.Sequence{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
