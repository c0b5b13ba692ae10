package dto

import (
	"time"
)

// AttributeCondition is one typed predicate applied to a contact attribute
// when resolving recipients from groups.
type AttributeCondition struct {
	Attribute string `json:"attribute" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=date boolean number text"`
	// Value is the primary operand; ValueTo, when set, turns date and number
	// comparisons into between checks.
	Value   string  `json:"value" validate:"required"`
	ValueTo *string `json:"value_to,omitempty"`
}

// MediaDTO describes an attachment for WhatsApp bridge sends
type MediaDTO struct {
	Type string `json:"type" validate:"required,oneof=text image audio video document"`
	URL  string `json:"url" validate:"required_unless=Type text"`
	Name string `json:"name,omitempty"`
}

// DispatchRequest is a request to send one rendered message to a recipient
// set drawn from free-text numbers, contact groups, and an uploaded file.
type DispatchRequest struct {
	Channel  string `json:"channel" validate:"required,oneof=sms whatsapp"`
	Message  string `json:"message" validate:"required,min=1,max=4096"`
	Encoding string `json:"encoding" validate:"omitempty,oneof=plain unicode"`

	// Recipient sources, combined in order: numbers, groups, file
	Numbers    string               `json:"numbers,omitempty"`
	GroupIDs   []uint               `json:"group_ids,omitempty"`
	Conditions []AttributeCondition `json:"conditions,omitempty" validate:"omitempty,dive"`
	FilePath   string               `json:"file_path,omitempty"`

	ScheduleAt *time.Time `json:"schedule_at,omitempty"`

	// SMS routing: explicit gateway, fixed SIM, or SIM pool rotation
	GatewayID  *uint `json:"gateway_id,omitempty"`
	SIMID      *uint `json:"sim_id,omitempty"`
	UseSIMPool bool  `json:"use_sim_pool,omitempty"`

	// WhatsApp extras
	Media        *MediaDTO `json:"media,omitempty"`
	TemplateName string    `json:"template_name,omitempty"`

	CampaignID *uint `json:"campaign_id,omitempty"`
}

// DispatchResponse reports acceptance of a dispatch request. Per-recipient
// outcomes are observed through the message log listing.
type DispatchResponse struct {
	Message       string `json:"message"`
	Accepted      int    `json:"accepted"`
	TotalUnits    uint64 `json:"total_units"`
	Scheduled     bool   `json:"scheduled"`
	MessageLogIDs []uint `json:"message_log_ids"`
}
