package models

import "gorm.io/gorm"

// AllModels lists every persisted entity in foreign-key-safe creation order.
func AllModels() []any {
	return []any{
		&Customer{},
		&Gateway{},
		&DeviceSIM{},
		&WhatsAppGateway{},
		&WhatsAppTemplate{},
		&ContactGroup{},
		&Contact{},
		&CampaignContact{},
		&MessageLog{},
		&CreditLog{},
		&PlatformSettings{},
	}
}

// Migrate creates or updates the schema for every persisted entity. Run at
// boot before any row is read or seeded.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
