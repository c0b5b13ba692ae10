package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/farhadmsg/blastline/models"
	"gorm.io/gorm"
)

// ErrInsufficientCredit is returned when a guarded debit finds less balance
// than the requested amount.
var ErrInsufficientCredit = errors.New("insufficient credit")

// CreditLogRepositoryImpl implements CreditLogRepository
type CreditLogRepositoryImpl struct {
	*BaseRepository[models.CreditLog, models.CreditLogFilter]
}

func NewCreditLogRepository(db *gorm.DB) CreditLogRepository {
	return &CreditLogRepositoryImpl{BaseRepository: NewBaseRepository[models.CreditLog, models.CreditLogFilter](db)}
}

func (r *CreditLogRepositoryImpl) ByTrxNumber(ctx context.Context, trxNumber string) (*models.CreditLog, error) {
	db := r.getDB(ctx)
	var row models.CreditLog
	if err := db.Where("trx_number = ?", trxNumber).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *CreditLogRepositoryImpl) ByMessageLogID(ctx context.Context, messageLogID uint) ([]*models.CreditLog, error) {
	db := r.getDB(ctx)
	var rows []*models.CreditLog
	if err := db.Where("message_log_id = ?", messageLogID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CreditLogRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.CreditLog, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.CreditLog{}).Where("customer_id = ?", customerID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.CreditLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AdjustCredit applies a balance change as a single guarded UPDATE and
// appends the matching ledger row. Debits carry a `balance >= amount` guard
// so two concurrent debits for the same customer cannot overdraw; the loser
// sees zero affected rows and gets ErrInsufficientCredit. Callers run this
// inside WithTransaction when it must be atomic with other writes.
func (r *CreditLogRepositoryImpl) AdjustCredit(ctx context.Context, customerID uint, channel models.MessageChannel, direction models.CreditDirection, amount uint64, trxNumber, details string, messageLogID *uint) (*models.CreditLog, error) {
	db := r.getDB(ctx)
	column := models.CreditColumn(channel)

	var res *gorm.DB
	switch direction {
	case models.CreditDirectionDebit:
		res = db.Exec(
			fmt.Sprintf("UPDATE customers SET %s = %s - ?, updated_at = NOW() WHERE id = ? AND %s >= ?", column, column, column),
			amount, customerID, amount,
		)
	case models.CreditDirectionCredit:
		res = db.Exec(
			fmt.Sprintf("UPDATE customers SET %s = %s + ?, updated_at = NOW() WHERE id = ?", column, column),
			amount, customerID,
		)
	default:
		return nil, fmt.Errorf("invalid credit direction: %s", direction)
	}
	if res.Error != nil {
		return nil, fmt.Errorf("failed to adjust credit for customer %d: %w", customerID, res.Error)
	}
	if res.RowsAffected == 0 {
		if direction == models.CreditDirectionDebit {
			return nil, ErrInsufficientCredit
		}
		return nil, fmt.Errorf("customer %d not found", customerID)
	}

	// Post-balance snapshot read in the same transaction as the update
	var postBalance uint64
	if err := db.Raw(
		fmt.Sprintf("SELECT %s FROM customers WHERE id = ?", column), customerID,
	).Scan(&postBalance).Error; err != nil {
		return nil, fmt.Errorf("failed to read post balance for customer %d: %w", customerID, err)
	}

	row := &models.CreditLog{
		CustomerID:   customerID,
		Channel:      channel,
		Direction:    direction,
		Amount:       amount,
		PostBalance:  postBalance,
		TrxNumber:    trxNumber,
		Details:      details,
		MessageLogID: messageLogID,
	}
	if err := db.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to append credit log: %w", err)
	}
	return row, nil
}
