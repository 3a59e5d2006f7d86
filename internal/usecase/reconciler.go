package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	domainErrors "github.com/VictorTelvoice/telsim-sub001/internal/domain/errors"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/model"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/provider"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/repository"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

// TransactionTypeUpgrade is the metadata flag marking a checkout that
// supersedes the slot's current subscription.
const TransactionTypeUpgrade = "UPGRADE"

// CheckoutCompleted is the reconciler's view of a completed checkout
// session: the metadata the dashboard attached at checkout creation plus
// the session's payment figures.
type CheckoutCompleted struct {
	SessionID       string
	CustomerID      string
	UserID          string
	SlotID          string
	PlanName        string
	MonthlyLimit    int
	TransactionType string
	AmountTotal     int64 // minor currency units as reported by the session
	Currency        string
}

// IsUpgrade reports whether the checkout supersedes an existing
// subscription on the slot.
func (c *CheckoutCompleted) IsUpgrade() bool {
	return c.TransactionType == TransactionTypeUpgrade
}

// CheckoutFromSession extracts the reconciler's input from a checkout
// session object. ok is false when the user or slot id is missing: such
// an event is acknowledged but never mutates state, because redelivery
// cannot fix absent metadata. A malformed limit parses to zero for the
// same reason.
func CheckoutFromSession(session *stripe.CheckoutSession) (*CheckoutCompleted, bool) {
	userID := session.Metadata["userId"]
	slotID := session.Metadata["slot_id"]
	if userID == "" || slotID == "" {
		return nil, false
	}

	limit, _ := strconv.Atoi(session.Metadata["limit"])

	ev := &CheckoutCompleted{
		SessionID:       session.ID,
		UserID:          userID,
		SlotID:          slotID,
		PlanName:        session.Metadata["planName"],
		MonthlyLimit:    limit,
		TransactionType: session.Metadata["transactionType"],
		AmountTotal:     session.AmountTotal,
		Currency:        string(session.Currency),
	}
	if session.Customer != nil {
		ev.CustomerID = session.Customer.ID
	}

	return ev, true
}

// Reconciler applies a completed checkout to the tenant store: customer
// linkage, upgrade supersede, idempotent subscription insert and slot
// assignment. Every step is either idempotent or keyed on the session
// id, so replaying the same event is safe end to end.
type Reconciler struct {
	users   repository.UserRepository
	slots   repository.SlotRepository
	subs    repository.SubscriptionRepository
	billing provider.BillingProvider
	logger  *zap.Logger
}

// NewReconciler creates a new entitlement reconciler
func NewReconciler(
	users repository.UserRepository,
	slots repository.SlotRepository,
	subs repository.SubscriptionRepository,
	billing provider.BillingProvider,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		users:   users,
		slots:   slots,
		subs:    subs,
		billing: billing,
		logger:  logger,
	}
}

// Process applies one completed checkout. An error means a downstream
// failure the caller may retry; the event itself is never at fault here
// (malformed events are filtered before Process is called).
func (r *Reconciler) Process(ctx context.Context, ev *CheckoutCompleted) error {
	amount, err := r.resolveAmount(ctx, ev)
	if err != nil {
		return err
	}

	// Customer linkage is unconditional: the same value is rewritten on
	// replay, and later payment-method lookups depend on it.
	if ev.CustomerID != "" {
		if err := r.users.UpsertStripeCustomerID(ctx, ev.UserID, ev.CustomerID); err != nil {
			return err
		}
	}

	// Upgrade supersede runs before the insert and outside the
	// idempotency gate: re-canceling an already-canceled row is a no-op.
	if ev.IsUpgrade() {
		if err := r.subs.CancelActiveBySlot(ctx, ev.SlotID); err != nil {
			return err
		}
	}

	slot, err := r.slots.GetByID(ctx, ev.SlotID)
	if err != nil {
		return err
	}
	if slot == nil {
		return fmt.Errorf("%w: %s", domainErrors.ErrSlotNotFound, ev.SlotID)
	}

	created, err := r.subs.CreateIfAbsent(ctx, &model.Subscription{
		UserID:          ev.UserID,
		SlotID:          ev.SlotID,
		PhoneNumber:     slot.PhoneNumber,
		PlanName:        ev.PlanName,
		MonthlyLimit:    ev.MonthlyLimit,
		Status:          model.SubscriptionStatusActive,
		StripeSessionID: ev.SessionID,
		Amount:          amount,
		Currency:        ev.Currency,
		CreatedAt:       time.Now(),
	})
	if err != nil {
		return err
	}
	if !created {
		r.logger.Info("Duplicate checkout delivery, subscription insert skipped",
			zap.String("stripe_session_id", ev.SessionID))
	}

	// Slot assignment runs on every delivery, duplicates included. The
	// values are identical on replay so the overwrite is harmless.
	if err := r.slots.Assign(ctx, ev.SlotID, ev.UserID, ev.PlanName); err != nil {
		return err
	}

	r.logger.Info("Checkout reconciled",
		zap.String("stripe_session_id", ev.SessionID),
		zap.String("user_id", ev.UserID),
		zap.String("slot_id", ev.SlotID),
		zap.String("plan_name", ev.PlanName),
		zap.Bool("upgrade", ev.IsUpgrade()),
		zap.Bool("duplicate", !created))

	return nil
}

// resolveAmount converts the session total to major currency units,
// falling back to the first line item's unit price when the session
// reports zero.
func (r *Reconciler) resolveAmount(ctx context.Context, ev *CheckoutCompleted) (decimal.Decimal, error) {
	minor := ev.AmountTotal
	if minor == 0 {
		lineAmount, err := r.billing.FirstLineItemUnitAmount(ctx, ev.SessionID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to resolve amount from line items: %w", err)
		}
		minor = lineAmount
	}

	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100)), nil
}
