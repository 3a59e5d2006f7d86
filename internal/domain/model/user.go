package model

import "time"

// User mirrors the dashboard's users table. Only the Stripe customer
// linkage is owned by this service: it is set on the first successful
// checkout and never cleared afterwards.
type User struct {
	ID               string    `gorm:"primaryKey;size:64" json:"id"`
	StripeCustomerID *string   `gorm:"size:100;index" json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
