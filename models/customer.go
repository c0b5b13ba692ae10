// Package models contains domain entities and business models for the messaging platform
package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is an account holding prepaid credit per channel. Balances are
// mutated only through guarded single-row UPDATEs so concurrent debits for
// the same account cannot overdraw.
type Customer struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_customers_uuid" json:"uuid"`

	Name  string `gorm:"size:255;not null" json:"name"`
	Email string `gorm:"size:255;not null;uniqueIndex:idx_customers_email" json:"email"`
	Phone string `gorm:"size:32" json:"phone"`

	SMSCredit      uint64 `gorm:"not null;default:0" json:"sms_credit"`
	WhatsAppCredit uint64 `gorm:"not null;default:0" json:"whatsapp_credit"`

	IsActive bool `gorm:"default:true;index:idx_customers_is_active" json:"is_active"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// CreditFor returns the balance for the given channel.
func (c *Customer) CreditFor(channel MessageChannel) uint64 {
	if channel == MessageChannelWhatsApp {
		return c.WhatsAppCredit
	}
	return c.SMSCredit
}

// CreditColumn maps a channel to the balance column guarded UPDATEs target.
func CreditColumn(channel MessageChannel) string {
	if channel == MessageChannelWhatsApp {
		return "whatsapp_credit"
	}
	return "sms_credit"
}

// CustomerFilter represents filter criteria for customer queries
type CustomerFilter struct {
	ID       *uint
	UUID     *uuid.UUID
	Email    *string
	IsActive *bool
}
