package models

import (
	"encoding/json"
	"time"
)

// GatewayCredentials holds the provider-specific secrets an API gateway
// needs to authenticate outbound sends.
type GatewayCredentials struct {
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Sender   string `json:"sender,omitempty"`
}

// Gateway is an HTTP SMS provider endpoint. A nil CustomerID marks a shared
// platform gateway; at most one gateway per scope carries IsDefault.
type Gateway struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Name        string          `gorm:"size:255;not null" json:"name"`
	Credentials json.RawMessage `gorm:"type:jsonb;not null" json:"-"`
	IsDefault   bool            `gorm:"default:false;index:idx_gateways_is_default" json:"is_default"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`

	CustomerID *uint `gorm:"index:idx_gateways_customer_id" json:"customer_id,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Gateway) TableName() string { return "gateways" }

// DecodeCredentials unmarshals the stored credential blob.
func (g *Gateway) DecodeCredentials() (*GatewayCredentials, error) {
	var creds GatewayCredentials
	if err := json.Unmarshal(g.Credentials, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// GatewayFilter represents filter criteria for gateway queries
type GatewayFilter struct {
	ID         *uint
	Name       *string
	IsDefault  *bool
	IsActive   *bool
	CustomerID *uint
	Shared     bool
}
