package repository

import (
	"context"
	"fmt"

	"github.com/farhadmsg/blastline/models"
	"gorm.io/gorm"
)

// DeviceSIMRepositoryImpl implements DeviceSIMRepository
type DeviceSIMRepositoryImpl struct {
	*BaseRepository[models.DeviceSIM, models.DeviceSIMFilter]
}

func NewDeviceSIMRepository(db *gorm.DB) DeviceSIMRepository {
	return &DeviceSIMRepositoryImpl{BaseRepository: NewBaseRepository[models.DeviceSIM, models.DeviceSIMFilter](db)}
}

// ListActiveIDs returns the ids of all SIMs in the rotation pool, in stable
// order so pool distribution stays deterministic across refills.
func (r *DeviceSIMRepositoryImpl) ListActiveIDs(ctx context.Context) ([]uint, error) {
	db := r.getDB(ctx)
	var ids []uint
	err := db.Model(&models.DeviceSIM{}).
		Where("status = ?", models.DeviceSIMStatusActive).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active SIM ids: %w", err)
	}
	return ids, nil
}

func (r *DeviceSIMRepositoryImpl) ListActive(ctx context.Context) ([]*models.DeviceSIM, error) {
	db := r.getDB(ctx)
	var rows []*models.DeviceSIM
	err := db.Where("status = ?", models.DeviceSIMStatusActive).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active SIMs: %w", err)
	}
	return rows, nil
}
