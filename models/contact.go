package models

import (
	"encoding/json"
	"time"
)

// AttributeType enumerates the typed comparison families a group filter can
// apply to a contact attribute.
type AttributeType string

const (
	AttributeTypeDate    AttributeType = "date"
	AttributeTypeBoolean AttributeType = "boolean"
	AttributeTypeNumber  AttributeType = "number"
	AttributeTypeText    AttributeType = "text"
)

func (t AttributeType) Valid() bool {
	switch t {
	case AttributeTypeDate, AttributeTypeBoolean, AttributeTypeNumber, AttributeTypeText:
		return true
	}
	return false
}

// Contact is a stored recipient. Phone is the SMS destination and WhatsApp
// the chat destination; either may be empty. Attributes is a flat jsonb map
// of custom fields evaluated by group filters.
type Contact struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Name     string `gorm:"size:255" json:"name"`
	Phone    string `gorm:"size:32;index:idx_contacts_phone" json:"phone"`
	WhatsApp string `gorm:"size:32" json:"whatsapp"`

	Attributes json.RawMessage `gorm:"type:jsonb" json:"attributes,omitempty"`

	GroupID    uint  `gorm:"not null;index:idx_contacts_group_id" json:"group_id"`
	CustomerID *uint `gorm:"index:idx_contacts_customer_id" json:"customer_id,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Contact) TableName() string { return "contacts" }

// DestinationFor returns the channel-appropriate address. WhatsApp sends
// fall back to the phone number when no separate WhatsApp address is stored.
func (c *Contact) DestinationFor(channel MessageChannel) string {
	if channel == MessageChannelWhatsApp && c.WhatsApp != "" {
		return c.WhatsApp
	}
	return c.Phone
}

// AttributeMap decodes the jsonb attribute blob into a string map.
func (c *Contact) AttributeMap() (map[string]string, error) {
	if len(c.Attributes) == 0 {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal(c.Attributes, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ContactFilter represents filter criteria for contact queries
type ContactFilter struct {
	ID         *uint
	Phone      *string
	GroupID    *uint
	GroupIDs   []uint
	CustomerID *uint
}

// ContactGroup is a named bucket of contacts owned by a customer.
type ContactGroup struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Name       string `gorm:"size:255;not null" json:"name"`
	CustomerID *uint  `gorm:"index:idx_contact_groups_customer_id" json:"customer_id,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (ContactGroup) TableName() string { return "contact_groups" }

// ContactGroupFilter represents filter criteria for group queries
type ContactGroupFilter struct {
	ID         *uint
	Name       *string
	CustomerID *uint
}

// CampaignContactStatus mirrors delivery outcome onto a campaign membership
type CampaignContactStatus string

const (
	CampaignContactStatusPending CampaignContactStatus = "pending"
	CampaignContactStatusSent    CampaignContactStatus = "sent"
	CampaignContactStatusFailed  CampaignContactStatus = "fail"
)

// CampaignContact mirrors per-contact delivery outcome for a campaign send so
// campaign views do not scan the full message log.
type CampaignContact struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CampaignID uint                  `gorm:"not null;index:idx_campaign_contacts_campaign_id" json:"campaign_id"`
	ContactID  uint                  `gorm:"not null;index:idx_campaign_contacts_contact_id" json:"contact_id"`
	Status     CampaignContactStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (CampaignContact) TableName() string { return "campaign_contacts" }

// CampaignContactFilter represents filter criteria for campaign contact queries
type CampaignContactFilter struct {
	ID         *uint
	CampaignID *uint
	ContactID  *uint
	Status     *CampaignContactStatus
}
