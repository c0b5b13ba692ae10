package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/farhadmsg/blastline/models"
	"gorm.io/gorm"
)

// GatewayRepositoryImpl implements GatewayRepository
type GatewayRepositoryImpl struct {
	*BaseRepository[models.Gateway, models.GatewayFilter]
}

func NewGatewayRepository(db *gorm.DB) GatewayRepository {
	return &GatewayRepositoryImpl{BaseRepository: NewBaseRepository[models.Gateway, models.GatewayFilter](db)}
}

// Default returns the default active gateway for the customer, falling back
// to the shared platform default when the customer has none.
func (r *GatewayRepositoryImpl) Default(ctx context.Context, customerID *uint) (*models.Gateway, error) {
	db := r.getDB(ctx)

	if customerID != nil {
		var row models.Gateway
		err := db.Where("customer_id = ? AND is_default = ? AND is_active = ?", *customerID, true, true).
			First(&row).Error
		if err == nil {
			return &row, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find customer default gateway: %w", err)
		}
	}

	var row models.Gateway
	err := db.Where("customer_id IS NULL AND is_default = ? AND is_active = ?", true, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find shared default gateway: %w", err)
	}
	return &row, nil
}

func (r *GatewayRepositoryImpl) ListActive(ctx context.Context) ([]*models.Gateway, error) {
	db := r.getDB(ctx)
	var rows []*models.Gateway
	if err := db.Where("is_active = ?", true).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list active gateways: %w", err)
	}
	return rows, nil
}
