package repository

import (
	"context"
	"time"

	"github.com/VictorTelvoice/telsim-sub001/internal/domain/model"
)

// UserRepository owns the Stripe customer linkage on the users table.
type UserRepository interface {
	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, userID string) (*model.User, error)
	// UpsertStripeCustomerID writes the customer id onto the user row,
	// creating the row if the dashboard has not synced it yet. Writing
	// the same value again is a no-op, so replayed events are safe.
	UpsertStripeCustomerID(ctx context.Context, userID, customerID string) error
}

// SlotRepository reads and assigns rentable number slots.
type SlotRepository interface {
	// GetByID returns nil, nil when the slot does not exist.
	GetByID(ctx context.Context, slotID string) (*model.Slot, error)
	// Assign marks the slot occupied by the user with the purchased plan.
	// Last writer wins; replays rewrite the same values.
	Assign(ctx context.Context, slotID, userID, planType string) error
	// Upsert creates the slot or refreshes its phone number. Status and
	// assignment are never touched, so reseeding a live inventory is safe.
	Upsert(ctx context.Context, slot *model.Slot) error
}

// SubscriptionRepository persists checkout results.
type SubscriptionRepository interface {
	// GetBySessionID returns nil, nil when no row exists for the session.
	GetBySessionID(ctx context.Context, sessionID string) (*model.Subscription, error)
	// CreateIfAbsent inserts the subscription unless a row with the same
	// stripe_session_id already exists. Returns false when the insert was
	// skipped as a duplicate.
	CreateIfAbsent(ctx context.Context, sub *model.Subscription) (bool, error)
	// CancelActiveBySlot supersedes any active subscription on the slot.
	// Canceling an already-canceled row is a no-op.
	CancelActiveBySlot(ctx context.Context, slotID string) error
}

// WebhookRepository is the durable queue for verified Stripe events.
type WebhookRepository interface {
	SaveEvent(ctx context.Context, eventID, eventType string, created *time.Time, data model.JSONB) error
	GetEvent(ctx context.Context, eventID string) (*model.StripeWebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID string) error
	// MarkFailed records the failure, schedules the next retry with
	// exponential backoff, and dead-letters the event once maxAttempts is
	// exhausted.
	MarkFailed(ctx context.Context, eventID string, procErr error, maxAttempts int) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.StripeWebhookEvent, error)
}
