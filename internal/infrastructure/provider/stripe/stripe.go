package stripe

import (
	"context"

	"github.com/VictorTelvoice/telsim-sub001/internal/domain/provider"
	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/paymentmethod"
	"go.uber.org/zap"
)

// StripeProvider implements the BillingProvider interface for Stripe.
type StripeProvider struct {
	logger *zap.Logger
}

// NewStripeProvider creates a new Stripe provider. The secret key is set
// on the global stripe client, matching how the SDK subpackages are used.
func NewStripeProvider(secretKey string, logger *zap.Logger) *StripeProvider {
	stripe.Key = secretKey

	return &StripeProvider{
		logger: logger,
	}
}

// GetProviderName returns the provider name
func (s *StripeProvider) GetProviderName() string {
	return "stripe"
}

// FirstLineItemUnitAmount fetches the checkout session's line items and
// returns the first line's unit amount in minor currency units. Some
// checkout configurations report amount_total as zero; this is the
// fallback for those sessions.
func (s *StripeProvider) FirstLineItemUnitAmount(ctx context.Context, sessionID string) (int64, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := checkoutsession.ListLineItems(params)
	if iter.Next() {
		item := iter.LineItem()
		if item.Price != nil {
			return item.Price.UnitAmount, nil
		}
		return 0, nil
	}

	if err := iter.Err(); err != nil {
		return 0, wrapStripeError(err)
	}

	s.logger.Warn("Checkout session has no line items",
		zap.String("session_id", sessionID))
	return 0, nil
}

// FirstCardPaymentMethod lists the customer's card payment methods and
// returns the first one, or nil when the customer has no card on file.
// Stripe does not guarantee the first result is the customer's default
// method; the dashboard only displays it, so the approximation is
// acceptable.
func (s *StripeProvider) FirstCardPaymentMethod(ctx context.Context, customerID string) (*provider.CardPaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := paymentmethod.List(params)
	if iter.Next() {
		pm := iter.PaymentMethod()

		card := &provider.CardPaymentMethod{
			Brand: "card",
			Last4: "****",
		}
		if pm.Card != nil {
			if pm.Card.Brand != "" {
				card.Brand = string(pm.Card.Brand)
			}
			if pm.Card.Last4 != "" {
				card.Last4 = pm.Card.Last4
			}
			card.ExpMonth = pm.Card.ExpMonth
			card.ExpYear = pm.Card.ExpYear
		}
		return card, nil
	}

	if err := iter.Err(); err != nil {
		return nil, wrapStripeError(err)
	}

	return nil, nil
}

// CreatePortalSession creates a billing-portal session for the customer
func (s *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	ps, err := portalsession.New(params)
	if err != nil {
		return "", wrapStripeError(err)
	}

	s.logger.Info("Portal session created",
		zap.String("customer_id", customerID),
		zap.String("portal_session_id", ps.ID))

	return ps.URL, nil
}

// wrapStripeError converts a Stripe SDK error into a ProviderError.
func wrapStripeError(err error) error {
	if err == nil {
		return nil
	}

	stripeErr, ok := err.(*stripe.Error)
	if !ok {
		return err
	}

	return &provider.ProviderError{
		Code:    string(stripeErr.Code),
		Message: stripeErr.Msg,
	}
}
