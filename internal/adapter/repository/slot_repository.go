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

type slotRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSlotRepository creates a new slot repository
func NewSlotRepository(db *gorm.DB, logger *zap.Logger) repository.SlotRepository {
	return &slotRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a slot by its id
func (r *slotRepository) GetByID(ctx context.Context, slotID string) (*model.Slot, error) {
	var slot model.Slot

	err := r.db.WithContext(ctx).
		Where("slot_id = ?", slotID).
		First(&slot).Error

	if err != nil {
		if apperrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get slot",
			zap.String("slot_id", slotID),
			zap.Error(err))
		return nil, apperrors.Wrap(err, "failed to get slot")
	}

	return &slot, nil
}

// Assign marks the slot occupied by the user. The write is last-writer-wins
// and idempotent: a redelivered checkout rewrites the same values.
func (r *slotRepository) Assign(ctx context.Context, slotID, userID, planType string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("slot_id = ?", slotID).
		Updates(map[string]interface{}{
			"status":      model.SlotStatusOccupied,
			"assigned_to": userID,
			"plan_type":   planType,
			"updated_at":  time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to assign slot",
			zap.String("slot_id", slotID),
			zap.String("user_id", userID),
			zap.Error(result.Error))
		return apperrors.Wrap(result.Error, "failed to assign slot")
	}

	if result.RowsAffected == 0 {
		return apperrors.NewAppError(apperrors.ErrNotFound, fmt.Sprintf("slot not found: %s", slotID), nil)
	}

	return nil
}

// Upsert inserts the slot or updates its phone number in place. Existing
// status and assignment survive a reseed.
func (r *slotRepository) Upsert(ctx context.Context, slot *model.Slot) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"phone_number", "updated_at"}),
		}).
		Create(slot).Error

	if err != nil {
		r.logger.Error("Failed to upsert slot",
			zap.String("slot_id", slot.SlotID),
			zap.Error(err))
		return apperrors.Wrap(err, "failed to upsert slot")
	}

	return nil
}
