package database

import (
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	// Custom types must exist before auto-migrate references them
	logger.Info("Creating custom PostgreSQL types...")
	if err := createCustomTypes(db); err != nil {
		logger.Error("Failed to create custom types", zap.Error(err))
		return err
	}
	logger.Info("Custom PostgreSQL types created successfully")

	// Auto-migrate all models
	logger.Info("Running GORM auto-migrations...")
	err := db.AutoMigrate(
		&model.User{},
		&model.Slot{},
		&model.Subscription{},
		&model.StripeWebhookEvent{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}
	logger.Info("GORM auto-migrations completed successfully")

	// Create custom indexes and constraints
	logger.Info("Creating custom indexes...")
	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}
	logger.Info("Custom indexes created successfully")

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates custom indexes that GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	// Partial index scanned by the webhook worker when polling for work
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed ON stripe_webhook_events (created_at) WHERE status IN ('pending', 'failed')`).Error; err != nil {
		return err
	}

	// Speeds up cancellation of the active subscription on a slot
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_subscriptions_slot_active ON subscriptions (slot_id) WHERE status = 'active'`).Error; err != nil {
		return err
	}

	return nil
}

// createCustomTypes creates custom PostgreSQL types
func createCustomTypes(db *gorm.DB) error {
	var exists bool

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'slot_status')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE slot_status AS ENUM ('free', 'ocupado')`).Error; err != nil {
			return err
		}
	}

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'subscription_status')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE subscription_status AS ENUM ('active', 'canceled')`).Error; err != nil {
			return err
		}
	}

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'webhook_status')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE webhook_status AS ENUM ('pending', 'processing', 'completed', 'failed', 'dead_letter')`).Error; err != nil {
			return err
		}
	} else {
		// Older databases predate the dead-letter state
		_ = db.Exec(`ALTER TYPE webhook_status ADD VALUE IF NOT EXISTS 'dead_letter'`).Error
	}

	return nil
}
