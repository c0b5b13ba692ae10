package models

import (
	"encoding/json"
	"time"
)

// MessageChannel identifies the delivery channel of a message log
type MessageChannel string

const (
	MessageChannelSMS      MessageChannel = "sms"
	MessageChannelWhatsApp MessageChannel = "whatsapp"
)

func (c MessageChannel) Valid() bool {
	return c == MessageChannelSMS || c == MessageChannelWhatsApp
}

func (c MessageChannel) String() string { return string(c) }

// MessageStatus represents the delivery state of a message log
type MessageStatus string

const (
	MessageStatusPending    MessageStatus = "pending"    // Written ahead of delivery, due immediately
	MessageStatusScheduled  MessageStatus = "scheduled"  // Written ahead of delivery, due at InitiatedTime
	MessageStatusFailed     MessageStatus = "failed"     // Terminal; credit refunded for billed paths
	MessageStatusDelivered  MessageStatus = "delivered"  // Terminal; confirmed by SMS gateway
	MessageStatusProcessing MessageStatus = "processing" // Accepted by WhatsApp Cloud API, awaiting webhook
	MessageStatusSuccess    MessageStatus = "success"    // Terminal; confirmed by WhatsApp bridge
)

func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusPending, MessageStatusScheduled, MessageStatusFailed,
		MessageStatusDelivered, MessageStatusProcessing, MessageStatusSuccess:
		return true
	}
	return false
}

// IsTerminal returns true for states the executor never leaves automatically
func (s MessageStatus) IsTerminal() bool {
	return s == MessageStatusFailed || s == MessageStatusDelivered || s == MessageStatusSuccess
}

func (s MessageStatus) String() string { return string(s) }

// MessageEncoding describes the character set used for billing-unit math
type MessageEncoding string

const (
	MessageEncodingPlain   MessageEncoding = "plain"
	MessageEncodingUnicode MessageEncoding = "unicode"
)

func (e MessageEncoding) Valid() bool {
	return e == MessageEncodingPlain || e == MessageEncodingUnicode
}

// ScheduleStatus marks whether the send was requested immediately or for later
type ScheduleStatus string

const (
	ScheduleStatusImmediate ScheduleStatus = "immediate"
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
)

// MediaType enumerates WhatsApp bridge payload shapes
type MediaType string

const (
	MediaTypeText     MediaType = "text"
	MediaTypeImage    MediaType = "image"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeVideo    MediaType = "video"
	MediaTypeDocument MediaType = "document"
)

func (m MediaType) Valid() bool {
	switch m {
	case MediaTypeText, MediaTypeImage, MediaTypeAudio, MediaTypeVideo, MediaTypeDocument:
		return true
	}
	return false
}

// MediaInfo describes an attached media file for WhatsApp bridge sends
type MediaInfo struct {
	Type MediaType `json:"type"`
	URL  string    `json:"url"`
	Name string    `json:"name,omitempty"`
}

// MessageLog records one recipient of one send request. It is created before
// any network call is attempted so every delivery attempt is auditable.
// WordLength is fixed at creation and used for all later credit math.
// Exactly one of APIGatewayID / DeviceSIMID is set for SMS once a gateway has
// been chosen; WhatsApp logs reference a WhatsAppGateway instead.
type MessageLog struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	To      string         `gorm:"size:32;not null;index:idx_message_logs_to" json:"to"`
	Message string         `gorm:"type:text;not null" json:"message"`
	Channel MessageChannel `gorm:"type:varchar(16);not null;index:idx_message_logs_channel" json:"channel"`
	Status  MessageStatus  `gorm:"type:varchar(16);not null;default:'pending';index:idx_message_logs_status" json:"status"`

	Encoding   MessageEncoding `gorm:"type:varchar(16);not null;default:'plain'" json:"encoding"`
	WordLength int             `gorm:"not null" json:"word_length"`

	APIGatewayID      *uint `gorm:"index:idx_message_logs_api_gateway_id" json:"api_gateway_id,omitempty"`
	DeviceSIMID       *uint `gorm:"index:idx_message_logs_device_sim_id" json:"device_sim_id,omitempty"`
	WhatsAppGatewayID *uint `gorm:"index:idx_message_logs_whatsapp_gateway_id" json:"whatsapp_gateway_id,omitempty"`
	TemplateID        *uint `json:"template_id,omitempty"`

	ScheduleStatus ScheduleStatus `gorm:"type:varchar(16);not null;default:'immediate'" json:"schedule_status"`
	InitiatedTime  time.Time      `gorm:"not null;index:idx_message_logs_initiated_time" json:"initiated_time"`

	ResponseGateway *string    `gorm:"type:text" json:"response_gateway,omitempty"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`

	// Media descriptor for WhatsApp bridge sends; nil means plain text
	FileInfo json.RawMessage `gorm:"type:jsonb" json:"file_info,omitempty"`

	ContactID *uint `gorm:"index:idx_message_logs_contact_id" json:"contact_id,omitempty"`

	// Nil denotes an admin/system-initiated send
	CustomerID *uint `gorm:"index:idx_message_logs_customer_id" json:"customer_id,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_message_logs_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (MessageLog) TableName() string { return "message_logs" }

// BillingUnits returns the number of credits this log costs, derived from the
// rendered body and the word length frozen at creation time.
func (m *MessageLog) BillingUnits() uint64 {
	return BillingUnits(m.Message, m.WordLength)
}

// Billed reports whether this log's delivery path is metered. Device/SIM
// routed sends are not metered; API-gateway SMS and WhatsApp sends are.
func (m *MessageLog) Billed() bool {
	return m.DeviceSIMID == nil
}

// Media decodes FileInfo, returning nil for text-only logs.
func (m *MessageLog) Media() (*MediaInfo, error) {
	if len(m.FileInfo) == 0 {
		return nil, nil
	}
	var info MediaInfo
	if err := json.Unmarshal(m.FileInfo, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// BillingUnits converts a rendered message body into prepaid credit units:
// ceil(characters / wordLength). Characters are counted as runes so unicode
// bodies bill by the same rule as the unicode word-length constant assumes.
func BillingUnits(message string, wordLength int) uint64 {
	if wordLength <= 0 {
		return 0
	}
	n := len([]rune(message))
	if n == 0 {
		return 1
	}
	return uint64((n + wordLength - 1) / wordLength)
}

// MessageLogFilter represents filter criteria for message log queries
type MessageLogFilter struct {
	ID             *uint
	To             *string
	Channel        *MessageChannel
	Status         *MessageStatus
	Statuses       []MessageStatus
	APIGatewayID   *uint
	DeviceSIMID    *uint
	CustomerID     *uint
	AdminOnly      bool
	InitiatedAfter *time.Time
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
}
