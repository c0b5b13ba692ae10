package businessflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/repository"
	"github.com/farhadmsg/blastline/utils"
	"gorm.io/gorm"
)

// CreditLedger wraps the ledger repository with dispatch semantics: debits
// that abort on insufficient balance and per-message refunds that apply at
// most once.
type CreditLedger interface {
	Debit(ctx context.Context, customerID uint, channel models.MessageChannel, amount uint64, details string) (*models.CreditLog, error)
	// RefundMessage restores the units billed for a message log. It returns
	// false without error when the log is unbilled, admin-initiated, or
	// already refunded.
	RefundMessage(ctx context.Context, log *models.MessageLog, reason string) (bool, error)
}

type CreditLedgerImpl struct {
	db         *gorm.DB
	creditRepo repository.CreditLogRepository
}

func NewCreditLedger(db *gorm.DB, creditRepo repository.CreditLogRepository) CreditLedger {
	return &CreditLedgerImpl{db: db, creditRepo: creditRepo}
}

func (l *CreditLedgerImpl) Debit(ctx context.Context, customerID uint, channel models.MessageChannel, amount uint64, details string) (*models.CreditLog, error) {
	row, err := l.creditRepo.AdjustCredit(ctx, customerID, channel, models.CreditDirectionDebit, amount, utils.GenerateTrxNumber(), details, nil)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientCredit) {
			return nil, NewBusinessErrorf("PRECONDITION_INSUFFICIENT_CREDIT", "Customer %d has insufficient %s credit for %d units", ErrInsufficientCredit, customerID, channel, amount)
		}
		return nil, NewBusinessError("CREDIT_DEBIT_FAILED", "Failed to debit credit", err)
	}
	return row, nil
}

// RefundMessage refunds exactly the units billed at send time, computed from
// the body and word length frozen on the log row. The existing-refund check
// and the ledger append run in one transaction so two concurrent refund
// attempts cannot both apply.
func (l *CreditLedgerImpl) RefundMessage(ctx context.Context, log *models.MessageLog, reason string) (bool, error) {
	if log.CustomerID == nil || !log.Billed() {
		return false, nil
	}
	units := log.BillingUnits()
	if units == 0 {
		return false, nil
	}

	refunded := false
	err := repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		existing, err := l.creditRepo.ByMessageLogID(txCtx, log.ID)
		if err != nil {
			return fmt.Errorf("failed to check existing refunds: %w", err)
		}
		for _, row := range existing {
			if row.Direction == models.CreditDirectionCredit {
				return nil
			}
		}

		details := fmt.Sprintf("refund for message %d to %s: %s", log.ID, log.To, reason)
		logID := log.ID
		_, err = l.creditRepo.AdjustCredit(txCtx, *log.CustomerID, log.Channel, models.CreditDirectionCredit, units, utils.GenerateTrxNumber(), details, &logID)
		if err != nil {
			return fmt.Errorf("failed to append refund: %w", err)
		}
		refunded = true
		return nil
	})
	if err != nil {
		return false, NewBusinessError("CREDIT_REFUND_FAILED", "Failed to refund message credit", err)
	}
	return refunded, nil
}
