package provider

import "context"

// BillingProvider defines the payment-gateway capabilities the service
// consumes. Webhook signature verification is handled at the HTTP edge;
// everything behind it goes through this interface so usecases can be
// tested without Stripe.
type BillingProvider interface {
	// FirstLineItemUnitAmount returns the unit amount (minor currency
	// units) of the first line item of a checkout session. Used when the
	// session reports a zero total.
	FirstLineItemUnitAmount(ctx context.Context, sessionID string) (int64, error)

	// FirstCardPaymentMethod returns the first card on file for the
	// customer, or nil when none exists. The provider does not guarantee
	// that the first result is the customer's default method; this is a
	// documented display-only simplification.
	FirstCardPaymentMethod(ctx context.Context, customerID string) (*CardPaymentMethod, error)

	// CreatePortalSession creates a billing-portal session scoped to the
	// customer and returns its URL.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)

	// GetProviderName returns the provider name
	GetProviderName() string
}

// CardPaymentMethod is the simplified card view surfaced to the dashboard.
type CardPaymentMethod struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"exp_month"`
	ExpYear  int64  `json:"exp_year"`
}

// ProviderError carries a provider-side failure.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
