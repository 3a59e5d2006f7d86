package repository

import (
	"context"
	"fmt"

	"github.com/VictorTelvoice/telsim-sub001/internal/domain/model"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/repository"
	apperrors "github.com/VictorTelvoice/telsim-sub001/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
	}
}

// GetBySessionID retrieves a subscription by its checkout session id
func (r *subscriptionRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("stripe_session_id = ?", sessionID).
		First(&sub).Error

	if err != nil {
		if apperrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by session id",
			zap.String("stripe_session_id", sessionID),
			zap.Error(err))
		return nil, apperrors.Wrap(err, "failed to get subscription")
	}

	return &sub, nil
}

// CreateIfAbsent inserts the subscription keyed by stripe_session_id. The
// unique index on that column is the idempotency guarantee: a concurrent
// or redelivered insert lands on ON CONFLICT DO NOTHING and reports zero
// rows affected, which callers treat as "duplicate delivery, skip".
func (r *subscriptionRepository) CreateIfAbsent(ctx context.Context, sub *model.Subscription) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_session_id"}},
			DoNothing: true,
		}).
		Create(sub)

	if result.Error != nil {
		r.logger.Error("Failed to save subscription",
			zap.String("stripe_session_id", sub.StripeSessionID),
			zap.String("user_id", sub.UserID),
			zap.Error(result.Error))
		return false, apperrors.Wrap(result.Error, "failed to save subscription")
	}

	return result.RowsAffected > 0, nil
}

// CancelActiveBySlot marks any active subscription for the slot canceled.
// Runs before the upgrade's new row is inserted so that at most one
// active subscription exists per slot. Re-canceling is a no-op.
func (r *subscriptionRepository) CancelActiveBySlot(ctx context.Context, slotID string) error {
	from, to := model.SubscriptionStatusActive, model.SubscriptionStatusCanceled
	if !from.CanTransition(to) {
		return apperrors.NewAppError(apperrors.ErrConflict, fmt.Sprintf("illegal subscription transition: %s to %s", from, to), nil)
	}

	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("slot_id = ? AND status = ?", slotID, from).
		Update("status", to)

	if result.Error != nil {
		r.logger.Error("Failed to cancel active subscription for slot",
			zap.String("slot_id", slotID),
			zap.Error(result.Error))
		return apperrors.Wrap(result.Error, "failed to cancel subscription")
	}

	if result.RowsAffected > 0 {
		r.logger.Info("Superseded active subscription",
			zap.String("slot_id", slotID),
			zap.Int64("rows", result.RowsAffected))
	}

	return nil
}
