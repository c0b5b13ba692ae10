package models

import (
	"time"
)

// WhatsAppMode selects how a WhatsApp gateway delivers: through a local
// bridge session or through the Cloud API. The mode is a property of the
// gateway record and is never re-decided per message.
type WhatsAppMode string

const (
	WhatsAppModeBridge WhatsAppMode = "bridge"
	WhatsAppModeCloud  WhatsAppMode = "cloud"
)

func (m WhatsAppMode) Valid() bool {
	return m == WhatsAppModeBridge || m == WhatsAppModeCloud
}

func (m WhatsAppMode) String() string { return string(m) }

// WhatsAppGateway binds a customer to either a bridge session (SessionID) or
// a Cloud API phone number (PhoneNumberID + AccessToken).
type WhatsAppGateway struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Name string       `gorm:"size:255;not null" json:"name"`
	Mode WhatsAppMode `gorm:"type:varchar(16);not null" json:"mode"`

	// Bridge mode
	SessionID string `gorm:"size:128" json:"session_id,omitempty"`

	// Cloud mode
	PhoneNumberID string `gorm:"size:64" json:"phone_number_id,omitempty"`
	AccessToken   string `gorm:"size:512" json:"-"`

	IsActive   bool  `gorm:"default:true" json:"is_active"`
	CustomerID *uint `gorm:"index:idx_whatsapp_gateways_customer_id" json:"customer_id,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (WhatsAppGateway) TableName() string { return "whatsapp_gateways" }

// WhatsAppGatewayFilter represents filter criteria for WhatsApp gateway queries
type WhatsAppGatewayFilter struct {
	ID         *uint
	Mode       *WhatsAppMode
	SessionID  *string
	IsActive   *bool
	CustomerID *uint
}

// WhatsAppTemplate is a pre-approved Cloud API message template.
type WhatsAppTemplate struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Name         string `gorm:"size:255;not null" json:"name"`
	LanguageCode string `gorm:"size:16;not null;default:'en_US'" json:"language_code"`

	GatewayID  uint  `gorm:"not null;index:idx_whatsapp_templates_gateway_id" json:"gateway_id"`
	CustomerID *uint `gorm:"index:idx_whatsapp_templates_customer_id" json:"customer_id,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (WhatsAppTemplate) TableName() string { return "whatsapp_templates" }

// WhatsAppTemplateFilter represents filter criteria for template queries
type WhatsAppTemplateFilter struct {
	ID         *uint
	Name       *string
	GatewayID  *uint
	CustomerID *uint
}
