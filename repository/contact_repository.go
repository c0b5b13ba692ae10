package repository

import (
	"context"
	"fmt"

	"github.com/farhadmsg/blastline/models"
	"gorm.io/gorm"
)

// ContactRepositoryImpl implements ContactRepository
type ContactRepositoryImpl struct {
	*BaseRepository[models.Contact, models.ContactFilter]
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &ContactRepositoryImpl{BaseRepository: NewBaseRepository[models.Contact, models.ContactFilter](db)}
}

// ByGroupIDs returns all members of the given groups in insertion order.
func (r *ContactRepositoryImpl) ByGroupIDs(ctx context.Context, groupIDs []uint) ([]*models.Contact, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	db := r.getDB(ctx)
	var rows []*models.Contact
	err := db.Where("group_id IN ?", groupIDs).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts by groups: %w", err)
	}
	return rows, nil
}

// ContactGroupRepositoryImpl implements ContactGroupRepository
type ContactGroupRepositoryImpl struct {
	*BaseRepository[models.ContactGroup, models.ContactGroupFilter]
}

func NewContactGroupRepository(db *gorm.DB) ContactGroupRepository {
	return &ContactGroupRepositoryImpl{BaseRepository: NewBaseRepository[models.ContactGroup, models.ContactGroupFilter](db)}
}

func (r *ContactGroupRepositoryImpl) ByIDs(ctx context.Context, ids []uint) ([]*models.ContactGroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db := r.getDB(ctx)
	var rows []*models.ContactGroup
	if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list contact groups: %w", err)
	}
	return rows, nil
}

// CampaignContactRepositoryImpl implements CampaignContactRepository
type CampaignContactRepositoryImpl struct {
	*BaseRepository[models.CampaignContact, models.CampaignContactFilter]
}

func NewCampaignContactRepository(db *gorm.DB) CampaignContactRepository {
	return &CampaignContactRepositoryImpl{BaseRepository: NewBaseRepository[models.CampaignContact, models.CampaignContactFilter](db)}
}

// UpdateStatusByContact mirrors a delivery outcome onto every campaign
// membership of the contact.
func (r *CampaignContactRepositoryImpl) UpdateStatusByContact(ctx context.Context, contactID uint, status models.CampaignContactStatus) error {
	db := r.getDB(ctx)
	err := db.Model(&models.CampaignContact{}).
		Where("contact_id = ?", contactID).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update campaign contact status: %w", err)
	}
	return nil
}
