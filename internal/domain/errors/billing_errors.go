package errors

import "errors"

var (
	// ErrNoBillingProfile is returned when a user has no Stripe customer
	// id on file. On portal creation this is a client error; on
	// payment-method reads it is a normal "no data" state.
	ErrNoBillingProfile = errors.New("no active billing profile; complete a purchase first")

	// ErrSlotNotFound is returned when reconciliation references a slot
	// the provisioning side has not created yet. Retryable.
	ErrSlotNotFound = errors.New("slot not found")
)
