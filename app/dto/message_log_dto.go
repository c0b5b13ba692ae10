package dto

import (
	"time"
)

// ListMessageLogsRequest filters the message log listing
type ListMessageLogsRequest struct {
	Pagination
	Channel   string     `json:"channel" validate:"omitempty,oneof=sms whatsapp"`
	Status    string     `json:"status" validate:"omitempty,oneof=pending scheduled failed delivered processing success"`
	To        string     `json:"to,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// MessageLogDTO is the external view of one message log row
type MessageLogDTO struct {
	ID              uint       `json:"id"`
	To              string     `json:"to"`
	Message         string     `json:"message"`
	Channel         string     `json:"channel"`
	Status          string     `json:"status"`
	Units           uint64     `json:"units"`
	APIGatewayID    *uint      `json:"api_gateway_id,omitempty"`
	DeviceSIMID     *uint      `json:"device_sim_id,omitempty"`
	InitiatedTime   time.Time  `json:"initiated_time"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	ResponseGateway *string    `json:"response_gateway,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ListMessageLogsResponse is a page of message logs
type ListMessageLogsResponse struct {
	Message string          `json:"message"`
	Total   int64           `json:"total"`
	Items   []MessageLogDTO `json:"items"`
}

// OverrideStatusRequest is an admin request to force a log into a status.
// Forcing Pending re-enqueues the message after a credit re-check.
type OverrideStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending failed delivered success"`
	// Optional SIM reassignment applied together with a Pending override
	SIMID *uint `json:"sim_id,omitempty"`
}

// OverrideStatusResponse reports the applied override
type OverrideStatusResponse struct {
	Message  string `json:"message"`
	ID       uint   `json:"id"`
	Status   string `json:"status"`
	Refunded bool   `json:"refunded"`
}

// DeleteMessageLogResponse reports a deletion and any compensating refund
type DeleteMessageLogResponse struct {
	Message  string `json:"message"`
	ID       uint   `json:"id"`
	Refunded bool   `json:"refunded"`
}

// CreditLogDTO is the external view of one ledger row
type CreditLogDTO struct {
	ID          uint      `json:"id"`
	Channel     string    `json:"channel"`
	Direction   string    `json:"direction"`
	Amount      uint64    `json:"amount"`
	PostBalance uint64    `json:"post_balance"`
	TrxNumber   string    `json:"trx_number"`
	Details     string    `json:"details"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListCreditLogsResponse is a page of ledger rows
type ListCreditLogsResponse struct {
	Message string         `json:"message"`
	Items   []CreditLogDTO `json:"items"`
}
