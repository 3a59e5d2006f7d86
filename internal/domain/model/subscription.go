package model

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus represents the status of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// CanTransition reports whether the status machine allows moving to the
// target state. The only legal transition is active -> canceled
// (upgrade supersede); canceled is terminal.
func (s SubscriptionStatus) CanTransition(to SubscriptionStatus) bool {
	return s == SubscriptionStatusActive && to == SubscriptionStatusCanceled
}

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = SubscriptionStatusCanceled
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Subscription is one paid checkout applied to a slot. StripeSessionID is
// the idempotency key: the unique index makes a redelivered checkout
// event a no-op insert. Amount is stored in major currency units.
type Subscription struct {
	ID              int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          string             `gorm:"not null;size:64;index" json:"user_id"`
	SlotID          string             `gorm:"not null;size:64;index" json:"slot_id"`
	PhoneNumber     string             `gorm:"size:32" json:"phone_number"`
	PlanName        string             `gorm:"size:64" json:"plan_name"`
	MonthlyLimit    int                `json:"monthly_limit"`
	Status          SubscriptionStatus `gorm:"type:subscription_status;not null;default:'active'" json:"status"`
	StripeSessionID string             `gorm:"uniqueIndex;not null;size:255" json:"stripe_session_id"`
	Amount          decimal.Decimal    `gorm:"type:numeric(10,2)" json:"amount"`
	Currency        string             `gorm:"size:8" json:"currency"`
	CreatedAt       time.Time          `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
