package models

import (
	"time"

	"github.com/lib/pq"
)

// SMSGatewayMode selects the default SMS delivery path for the platform
type SMSGatewayMode string

const (
	SMSGatewayModeAPI    SMSGatewayMode = "api"
	SMSGatewayModeDevice SMSGatewayMode = "device"
)

func (m SMSGatewayMode) Valid() bool {
	return m == SMSGatewayModeAPI || m == SMSGatewayModeDevice
}

// PlatformSettings is a single-row table of operator-tunable knobs. It is
// read on every dispatch, so callers go through the cached repository.
type PlatformSettings struct {
	ID uint `gorm:"primaryKey" json:"id"`

	SMSGatewayMode SMSGatewayMode `gorm:"type:varchar(16);not null;default:'api'" json:"sms_gateway_mode"`

	// Characters per billing unit per encoding
	PlainWordLength   int `gorm:"not null;default:160" json:"plain_word_length"`
	UnicodeWordLength int `gorm:"not null;default:70" json:"unicode_word_length"`

	// Words masked by the content renderer before dispatch
	ProfanityWords pq.StringArray `gorm:"type:text[]" json:"profanity_words"`

	// Enables {a|b|c} variation rendering for SMS bodies
	SpinnerEnabled bool `gorm:"default:false" json:"spinner_enabled"`

	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (PlatformSettings) TableName() string { return "platform_settings" }

// WordLengthFor returns the billing word length for the given encoding.
func (s *PlatformSettings) WordLengthFor(encoding MessageEncoding) int {
	if encoding == MessageEncodingUnicode {
		return s.UnicodeWordLength
	}
	return s.PlainWordLength
}

// PlatformSettingsFilter represents filter criteria for settings queries
type PlatformSettingsFilter struct {
	ID *uint
}
