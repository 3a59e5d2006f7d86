package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/VictorTelvoice/telsim-sub001/internal/domain/model"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/repository"
	apperrors "github.com/VictorTelvoice/telsim-sub001/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type webhookRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookRepository creates a new webhook repository
func NewWebhookRepository(db *gorm.DB, logger *zap.Logger) repository.WebhookRepository {
	return &webhookRepository{
		db:     db,
		logger: logger,
	}
}

// SaveEvent persists a verified webhook event. Duplicate deliveries of
// the same Stripe event id land on ON CONFLICT DO NOTHING.
func (r *webhookRepository) SaveEvent(ctx context.Context, eventID, eventType string, created *time.Time, data model.JSONB) error {
	event := &model.StripeWebhookEvent{
		StripeEventID:   eventID,
		EventType:       eventType,
		Status:          model.WebhookStatusPending,
		Data:            data,
		StripeCreatedAt: created,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error

	if err != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(err))
		return apperrors.Wrap(err, "failed to save webhook event")
	}

	return nil
}

// GetEvent retrieves a webhook event by its Stripe event id
func (r *webhookRepository) GetEvent(ctx context.Context, eventID string) (*model.StripeWebhookEvent, error) {
	var event model.StripeWebhookEvent

	err := r.db.WithContext(ctx).
		Where("stripe_event_id = ?", eventID).
		First(&event).Error

	if err != nil {
		if apperrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get webhook event",
			zap.String("event_id", eventID),
			zap.Error(err))
		return nil, apperrors.Wrap(err, "failed to get webhook event")
	}

	return &event, nil
}

// MarkProcessed marks a webhook event as completed
func (r *webhookRepository) MarkProcessed(ctx context.Context, eventID string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.StripeWebhookEvent{}).
		Where("stripe_event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":       model.WebhookStatusCompleted,
			"processed_at": &now,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as processed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return apperrors.Wrap(result.Error, "failed to mark webhook as processed")
	}

	if result.RowsAffected == 0 {
		return apperrors.NewAppError(apperrors.ErrNotFound, fmt.Sprintf("webhook event not found: %s", eventID), nil)
	}

	return nil
}

// MarkFailed records a processing failure and schedules the next retry
// with exponential backoff (5 min doubling per attempt, capped at 24 h).
// Once maxAttempts is exhausted the event is dead-lettered and the
// poller stops picking it up.
func (r *webhookRepository) MarkFailed(ctx context.Context, eventID string, procErr error, maxAttempts int) error {
	var event model.StripeWebhookEvent
	if dbErr := r.db.WithContext(ctx).
		Where("stripe_event_id = ?", eventID).
		First(&event).Error; dbErr != nil {
		r.logger.Error("Failed to get webhook event for failure update",
			zap.String("event_id", eventID),
			zap.Error(dbErr))
		return apperrors.Wrap(dbErr, "failed to get webhook event")
	}

	attempts := event.ProcessingAttempts + 1
	status := model.WebhookStatusFailed
	if maxAttempts > 0 && attempts >= maxAttempts {
		status = model.WebhookStatusDeadLetter
	}

	retryMinutes := 5 * (1 << attempts)
	if retryMinutes > 1440 {
		retryMinutes = 1440
	}
	nextRetry := time.Now().Add(time.Duration(retryMinutes) * time.Minute)

	errorMsg := procErr.Error()

	result := r.db.WithContext(ctx).
		Model(&model.StripeWebhookEvent{}).
		Where("stripe_event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":              status,
			"processing_attempts": attempts,
			"last_error":          &errorMsg,
			"next_retry_at":       &nextRetry,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as failed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return apperrors.Wrap(result.Error, "failed to mark webhook as failed")
	}

	if status == model.WebhookStatusDeadLetter {
		r.logger.Warn("Webhook event dead-lettered",
			zap.String("event_id", eventID),
			zap.Int("attempts", attempts),
			zap.String("last_error", errorMsg))
	}

	return nil
}

// GetPendingEvents retrieves pending and retry-due failed events in
// arrival order.
func (r *webhookRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.StripeWebhookEvent, error) {
	var events []*model.StripeWebhookEvent

	query := r.db.WithContext(ctx).
		Where("status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)",
			model.WebhookStatusPending,
			model.WebhookStatusFailed,
			time.Now()).
		Order("created_at ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&events).Error
	if err != nil {
		r.logger.Error("Failed to get pending webhook events",
			zap.Error(err))
		return nil, apperrors.Wrap(err, "failed to get pending webhook events")
	}

	return events, nil
}
