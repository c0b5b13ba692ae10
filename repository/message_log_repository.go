package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/utils"
	"gorm.io/gorm"
)

// MessageLogRepositoryImpl implements MessageLogRepository
type MessageLogRepositoryImpl struct {
	*BaseRepository[models.MessageLog, models.MessageLogFilter]
}

func NewMessageLogRepository(db *gorm.DB) MessageLogRepository {
	return &MessageLogRepositoryImpl{BaseRepository: NewBaseRepository[models.MessageLog, models.MessageLogFilter](db)}
}

func (r *MessageLogRepositoryImpl) applyFilter(db *gorm.DB, f models.MessageLogFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.To != nil {
		db = db.Where("\"to\" = ?", *f.To)
	}
	if f.Channel != nil {
		db = db.Where("channel = ?", *f.Channel)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if len(f.Statuses) > 0 {
		db = db.Where("status IN ?", f.Statuses)
	}
	if f.APIGatewayID != nil {
		db = db.Where("api_gateway_id = ?", *f.APIGatewayID)
	}
	if f.DeviceSIMID != nil {
		db = db.Where("device_sim_id = ?", *f.DeviceSIMID)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.AdminOnly {
		db = db.Where("customer_id IS NULL")
	}
	if f.InitiatedAfter != nil {
		db = db.Where("initiated_time >= ?", *f.InitiatedAfter)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *MessageLogRepositoryImpl) ByFilter(ctx context.Context, filter models.MessageLogFilter, limit, offset int) ([]*models.MessageLog, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.MessageLog{}), filter).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.MessageLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MessageLogRepositoryImpl) Count(ctx context.Context, filter models.MessageLogFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.MessageLog{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListDue returns pending and scheduled logs whose initiated time has passed,
// oldest first. The scheduled time is a lower bound, not an exact deadline.
func (r *MessageLogRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.MessageLog, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.MessageLog{}).
		Where("status IN ?", []models.MessageStatus{models.MessageStatusPending, models.MessageStatusScheduled}).
		Where("initiated_time <= ?", utils.TimeToUTC(now)).
		Order("initiated_time ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []*models.MessageLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list due message logs: %w", err)
	}
	return rows, nil
}

// TransitionStatus performs a guarded status change: the row moves to the
// target status only if it is currently in one of the expected states. The
// boolean result reports whether this call won the transition, which is what
// makes refunds and concurrent workers exactly-once.
func (r *MessageLogRepositoryImpl) TransitionStatus(ctx context.Context, id uint, from []models.MessageStatus, to models.MessageStatus, updates map[string]any) (bool, error) {
	db := r.getDB(ctx)

	values := map[string]any{
		"status":     to,
		"updated_at": utils.UTCNow(),
	}
	for k, v := range updates {
		values[k] = v
	}

	res := db.Model(&models.MessageLog{}).
		Where("id = ?", id).
		Where("status IN ?", from).
		Updates(values)
	if res.Error != nil {
		return false, fmt.Errorf("failed to transition message log %d to %s: %w", id, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *MessageLogRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	if err := db.Delete(&models.MessageLog{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete message log %d: %w", id, err)
	}
	return nil
}
