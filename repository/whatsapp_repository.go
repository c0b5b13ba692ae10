package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/farhadmsg/blastline/models"
	"gorm.io/gorm"
)

// WhatsAppGatewayRepositoryImpl implements WhatsAppGatewayRepository
type WhatsAppGatewayRepositoryImpl struct {
	*BaseRepository[models.WhatsAppGateway, models.WhatsAppGatewayFilter]
}

func NewWhatsAppGatewayRepository(db *gorm.DB) WhatsAppGatewayRepository {
	return &WhatsAppGatewayRepositoryImpl{BaseRepository: NewBaseRepository[models.WhatsAppGateway, models.WhatsAppGatewayFilter](db)}
}

func (r *WhatsAppGatewayRepositoryImpl) BySessionID(ctx context.Context, sessionID string) (*models.WhatsAppGateway, error) {
	db := r.getDB(ctx)
	var row models.WhatsAppGateway
	if err := db.Where("session_id = ?", sessionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find WhatsApp gateway by session: %w", err)
	}
	return &row, nil
}

// FirstActive returns the customer's active WhatsApp gateway, falling back to
// the shared platform gateway when the customer has none.
func (r *WhatsAppGatewayRepositoryImpl) FirstActive(ctx context.Context, customerID *uint) (*models.WhatsAppGateway, error) {
	db := r.getDB(ctx)

	if customerID != nil {
		var row models.WhatsAppGateway
		err := db.Where("customer_id = ? AND is_active = ?", *customerID, true).
			Order("id ASC").First(&row).Error
		if err == nil {
			return &row, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find customer WhatsApp gateway: %w", err)
		}
	}

	var row models.WhatsAppGateway
	err := db.Where("customer_id IS NULL AND is_active = ?", true).
		Order("id ASC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find shared WhatsApp gateway: %w", err)
	}
	return &row, nil
}

// WhatsAppTemplateRepositoryImpl implements WhatsAppTemplateRepository
type WhatsAppTemplateRepositoryImpl struct {
	*BaseRepository[models.WhatsAppTemplate, models.WhatsAppTemplateFilter]
}

func NewWhatsAppTemplateRepository(db *gorm.DB) WhatsAppTemplateRepository {
	return &WhatsAppTemplateRepositoryImpl{BaseRepository: NewBaseRepository[models.WhatsAppTemplate, models.WhatsAppTemplateFilter](db)}
}

func (r *WhatsAppTemplateRepositoryImpl) ByName(ctx context.Context, gatewayID uint, name string) (*models.WhatsAppTemplate, error) {
	db := r.getDB(ctx)
	var row models.WhatsAppTemplate
	if err := db.Where("gateway_id = ? AND name = ?", gatewayID, name).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find WhatsApp template: %w", err)
	}
	return &row, nil
}
