package models

import (
	"time"
)

// DeviceSIMStatus marks whether a SIM participates in the rotation pool
type DeviceSIMStatus string

const (
	DeviceSIMStatusActive   DeviceSIMStatus = "active"
	DeviceSIMStatusInactive DeviceSIMStatus = "inactive"
)

func (s DeviceSIMStatus) Valid() bool {
	return s == DeviceSIMStatusActive || s == DeviceSIMStatusInactive
}

// DeviceSIM is a SIM card installed in a customer-attached sending device.
// Device-routed sends do not consume prepaid credit.
type DeviceSIM struct {
	ID uint `gorm:"primaryKey" json:"id"`

	DeviceName string          `gorm:"size:255;not null" json:"device_name"`
	SlotNumber int             `gorm:"not null" json:"slot_number"`
	Number     string          `gorm:"size:32;not null" json:"number"`
	Status     DeviceSIMStatus `gorm:"type:varchar(16);not null;default:'active';index:idx_device_sims_status" json:"status"`

	CustomerID *uint `gorm:"index:idx_device_sims_customer_id" json:"customer_id,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (DeviceSIM) TableName() string { return "device_sims" }

// DeviceSIMFilter represents filter criteria for device SIM queries
type DeviceSIMFilter struct {
	ID         *uint
	Status     *DeviceSIMStatus
	CustomerID *uint
}
