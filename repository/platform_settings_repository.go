package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PlatformSettingsRepositoryImpl implements PlatformSettingsRepository with a
// short-TTL redis cache in front of the single settings row. The row is read
// on every dispatch; a nil redis client degrades to direct reads.
type PlatformSettingsRepositoryImpl struct {
	db *gorm.DB
	rc *redis.Client
}

func NewPlatformSettingsRepository(db *gorm.DB, rc *redis.Client) PlatformSettingsRepository {
	return &PlatformSettingsRepositoryImpl{db: db, rc: rc}
}

func (r *PlatformSettingsRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// Get returns the settings row, from cache when fresh. A missing row yields
// defaults so dispatch keeps working on an empty database.
func (r *PlatformSettingsRepositoryImpl) Get(ctx context.Context) (*models.PlatformSettings, error) {
	if r.rc != nil {
		if bs, err := r.rc.Get(ctx, utils.PlatformSettingsCacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached models.PlatformSettings
			if err := json.Unmarshal(bs, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	db := r.getDB(ctx)
	var row models.PlatformSettings
	if err := db.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.PlatformSettings{
				SMSGatewayMode:    models.SMSGatewayModeAPI,
				PlainWordLength:   utils.DefaultPlainWordLength,
				UnicodeWordLength: utils.DefaultUnicodeWordLength,
			}
			return &row, nil
		}
		return nil, fmt.Errorf("failed to load platform settings: %w", err)
	}

	if r.rc != nil {
		if bs, err := json.Marshal(&row); err == nil {
			_ = r.rc.Set(ctx, utils.PlatformSettingsCacheKey, bs, utils.PlatformSettingsCacheTTL).Err()
		}
	}
	return &row, nil
}

// Update persists the settings row and invalidates the cache.
func (r *PlatformSettingsRepositoryImpl) Update(ctx context.Context, settings *models.PlatformSettings) error {
	db := r.getDB(ctx)
	settings.UpdatedAt = utils.UTCNow()
	if err := db.Save(settings).Error; err != nil {
		return fmt.Errorf("failed to update platform settings: %w", err)
	}
	if r.rc != nil {
		_ = r.rc.Del(ctx, utils.PlatformSettingsCacheKey).Err()
	}
	return nil
}
