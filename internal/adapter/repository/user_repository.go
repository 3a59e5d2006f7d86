package repository

import (
	"context"

	"github.com/VictorTelvoice/telsim-sub001/internal/domain/model"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/repository"
	apperrors "github.com/VictorTelvoice/telsim-sub001/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB, logger *zap.Logger) repository.UserRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user row by its Supabase id
func (r *userRepository) GetByID(ctx context.Context, userID string) (*model.User, error) {
	var user model.User

	err := r.db.WithContext(ctx).
		Where("id = ?", userID).
		First(&user).Error

	if err != nil {
		if apperrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get user",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, apperrors.Wrap(err, "failed to get user")
	}

	return &user, nil
}

// UpsertStripeCustomerID links a Stripe customer id to the user row
func (r *userRepository) UpsertStripeCustomerID(ctx context.Context, userID, customerID string) error {
	user := &model.User{
		ID:               userID,
		StripeCustomerID: &customerID,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stripe_customer_id", "updated_at"}),
		}).
		Create(user).Error

	if err != nil {
		r.logger.Error("Failed to upsert stripe customer id",
			zap.String("user_id", userID),
			zap.String("stripe_customer_id", customerID),
			zap.Error(err))
		return apperrors.Wrap(err, "failed to upsert stripe customer id")
	}

	return nil
}
