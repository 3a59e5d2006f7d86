package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// WebhookStatus represents the processing status of a webhook event.
type WebhookStatus string

const (
	WebhookStatusPending    WebhookStatus = "pending"
	WebhookStatusProcessing WebhookStatus = "processing"
	WebhookStatusCompleted  WebhookStatus = "completed"
	WebhookStatusFailed     WebhookStatus = "failed"
	WebhookStatusDeadLetter WebhookStatus = "dead_letter"
)

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		*w = WebhookStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// StripeWebhookEvent is the durable queue entry for a verified Stripe
// event. Receipt is acknowledged to Stripe once the row exists; the
// processor owns retries from there. Data holds the checkout session
// object from the event payload.
type StripeWebhookEvent struct {
	ID                 int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	StripeEventID      string        `gorm:"uniqueIndex;not null;size:255" json:"stripe_event_id"`
	EventType          string        `gorm:"not null;size:100;index" json:"event_type"`
	Status             WebhookStatus `gorm:"type:webhook_status;default:'pending';index" json:"status"`
	Data               JSONB         `gorm:"type:jsonb;not null" json:"data"`
	ProcessingAttempts int           `gorm:"default:0" json:"processing_attempts"`
	LastError          *string       `json:"last_error,omitempty"`
	NextRetryAt        *time.Time    `json:"next_retry_at,omitempty"`
	ProcessedAt        *time.Time    `json:"processed_at,omitempty"`
	CreatedAt          time.Time     `gorm:"default:now()" json:"created_at"`
	StripeCreatedAt    *time.Time    `json:"stripe_created_at,omitempty"`
}

// TableName specifies the table name for GORM
func (StripeWebhookEvent) TableName() string {
	return "stripe_webhook_events"
}

// JSONB represents a JSONB database column.
type JSONB map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		*j = make(JSONB)
		return nil
	}
}
