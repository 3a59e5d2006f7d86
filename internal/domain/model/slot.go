package model

import (
	"database/sql/driver"
	"time"
)

// SlotStatus represents the occupancy of a rentable number slot.
type SlotStatus string

// "ocupado" is the occupied marker the dashboard stores and filters on.
const (
	SlotStatusFree     SlotStatus = "free"
	SlotStatusOccupied SlotStatus = "ocupado"
)

// Scan implements sql.Scanner interface
func (s *SlotStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SlotStatus(v)
	case []byte:
		*s = SlotStatus(v)
	default:
		*s = SlotStatusFree
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SlotStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Slot is a rentable phone-number unit. Assignment is last-writer-wins:
// every completed checkout for the slot overwrites AssignedTo and
// PlanType with the values of that checkout.
type Slot struct {
	SlotID      string     `gorm:"primaryKey;size:64" json:"slot_id"`
	PhoneNumber string     `gorm:"size:32" json:"phone_number"`
	Status      SlotStatus `gorm:"type:slot_status;not null;default:'free'" json:"status"`
	AssignedTo  *string    `gorm:"size:64;index" json:"assigned_to,omitempty"`
	PlanType    *string    `gorm:"size:64" json:"plan_type,omitempty"`
	CreatedAt   time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Slot) TableName() string {
	return "slots"
}
