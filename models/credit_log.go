package models

import (
	"time"
)

// CreditDirection marks whether a ledger row removed or restored balance
type CreditDirection string

const (
	CreditDirectionDebit  CreditDirection = "debit"
	CreditDirectionCredit CreditDirection = "credit"
)

func (d CreditDirection) Valid() bool {
	return d == CreditDirectionDebit || d == CreditDirectionCredit
}

// CreditLog is the append-only ledger of prepaid balance changes. Rows are
// never updated or deleted; the running balance is reconstructed by replay
// and cross-checked against PostBalance snapshots.
type CreditLog struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	CustomerID uint            `gorm:"not null;index:idx_credit_logs_customer_id" json:"customer_id"`
	Channel    MessageChannel  `gorm:"type:varchar(16);not null" json:"channel"`
	Direction  CreditDirection `gorm:"type:varchar(8);not null" json:"direction"`
	Amount     uint64          `gorm:"not null" json:"amount"`

	// Balance after applying this row, captured in the same transaction
	PostBalance uint64 `gorm:"not null" json:"post_balance"`

	TrxNumber string `gorm:"size:64;not null;uniqueIndex:idx_credit_logs_trx_number" json:"trx_number"`
	Details   string `gorm:"type:text" json:"details"`

	// Set when the row was produced by a per-message refund
	MessageLogID *uint `gorm:"index:idx_credit_logs_message_log_id" json:"message_log_id,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_credit_logs_created_at" json:"created_at"`
}

func (CreditLog) TableName() string { return "credit_logs" }

// CreditLogFilter represents filter criteria for credit ledger queries
type CreditLogFilter struct {
	ID            *uint
	CustomerID    *uint
	Channel       *MessageChannel
	Direction     *CreditDirection
	TrxNumber     *string
	MessageLogID  *uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
