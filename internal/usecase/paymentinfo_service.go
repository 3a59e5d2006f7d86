package usecase

import (
	"context"

	domainErrors "github.com/VictorTelvoice/telsim-sub001/internal/domain/errors"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/provider"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/repository"
	"go.uber.org/zap"
)

// PaymentInfoService backs the dashboard's billing read paths: the saved
// card projection and the billing-portal session.
type PaymentInfoService struct {
	users   repository.UserRepository
	billing provider.BillingProvider
	logger  *zap.Logger
}

// NewPaymentInfoService creates a new payment info service
func NewPaymentInfoService(users repository.UserRepository, billing provider.BillingProvider, logger *zap.Logger) *PaymentInfoService {
	return &PaymentInfoService{
		users:   users,
		billing: billing,
		logger:  logger,
	}
}

// GetPaymentMethod returns the user's first saved card, or nil when the
// user has no billing profile or no card on file. A user who never
// purchased is a normal state, not an error, and costs no provider call.
func (s *PaymentInfoService) GetPaymentMethod(ctx context.Context, userID string) (*provider.CardPaymentMethod, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return nil, nil
	}

	return s.billing.FirstCardPaymentMethod(ctx, *user.StripeCustomerID)
}

// CreatePortalSession creates a billing-portal session for the user and
// returns its URL. Returns ErrNoBillingProfile when the user has no
// Stripe customer id yet.
func (s *PaymentInfoService) CreatePortalSession(ctx context.Context, userID, returnURL string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil || user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", domainErrors.ErrNoBillingProfile
	}

	return s.billing.CreatePortalSession(ctx, *user.StripeCustomerID, returnURL)
}
