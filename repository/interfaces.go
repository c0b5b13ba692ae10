// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/farhadmsg/blastline/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
}

// MessageLogRepository defines operations for the write-ahead message log.
// ListDue is the durable dispatch queue; TransitionStatus is the only way a
// log changes state so status monotonicity is enforced in one place.
type MessageLogRepository interface {
	Repository[models.MessageLog, models.MessageLogFilter]
	ByFilter(ctx context.Context, filter models.MessageLogFilter, limit, offset int) ([]*models.MessageLog, error)
	Count(ctx context.Context, filter models.MessageLogFilter) (int64, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.MessageLog, error)
	TransitionStatus(ctx context.Context, id uint, from []models.MessageStatus, to models.MessageStatus, updates map[string]any) (bool, error)
	Delete(ctx context.Context, id uint) error
}

// CreditLogRepository defines operations for the prepaid credit ledger
type CreditLogRepository interface {
	Repository[models.CreditLog, models.CreditLogFilter]
	ByTrxNumber(ctx context.Context, trxNumber string) (*models.CreditLog, error)
	ByMessageLogID(ctx context.Context, messageLogID uint) ([]*models.CreditLog, error)
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.CreditLog, error)
	// AdjustCredit atomically applies a guarded balance change and appends the
	// ledger row with the post-balance snapshot. Debits fail with
	// ErrInsufficientCredit instead of overdrawing.
	AdjustCredit(ctx context.Context, customerID uint, channel models.MessageChannel, direction models.CreditDirection, amount uint64, trxNumber, details string, messageLogID *uint) (*models.CreditLog, error)
}

// CustomerRepository defines operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByEmail(ctx context.Context, email string) (*models.Customer, error)
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	ListActiveCustomers(ctx context.Context, limit, offset int) ([]*models.Customer, error)
}

// GatewayRepository defines operations for API SMS gateways
type GatewayRepository interface {
	Repository[models.Gateway, models.GatewayFilter]
	Default(ctx context.Context, customerID *uint) (*models.Gateway, error)
	ListActive(ctx context.Context) ([]*models.Gateway, error)
}

// DeviceSIMRepository defines operations for device-bound SIMs
type DeviceSIMRepository interface {
	Repository[models.DeviceSIM, models.DeviceSIMFilter]
	ListActiveIDs(ctx context.Context) ([]uint, error)
	ListActive(ctx context.Context) ([]*models.DeviceSIM, error)
}

// WhatsAppGatewayRepository defines operations for WhatsApp gateways
type WhatsAppGatewayRepository interface {
	Repository[models.WhatsAppGateway, models.WhatsAppGatewayFilter]
	BySessionID(ctx context.Context, sessionID string) (*models.WhatsAppGateway, error)
	FirstActive(ctx context.Context, customerID *uint) (*models.WhatsAppGateway, error)
}

// WhatsAppTemplateRepository defines operations for Cloud API templates
type WhatsAppTemplateRepository interface {
	Repository[models.WhatsAppTemplate, models.WhatsAppTemplateFilter]
	ByName(ctx context.Context, gatewayID uint, name string) (*models.WhatsAppTemplate, error)
}

// ContactRepository defines operations for stored recipients
type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ByGroupIDs(ctx context.Context, groupIDs []uint) ([]*models.Contact, error)
}

// ContactGroupRepository defines operations for contact groups
type ContactGroupRepository interface {
	Repository[models.ContactGroup, models.ContactGroupFilter]
	ByIDs(ctx context.Context, ids []uint) ([]*models.ContactGroup, error)
}

// CampaignContactRepository defines operations for campaign status mirrors
type CampaignContactRepository interface {
	Repository[models.CampaignContact, models.CampaignContactFilter]
	UpdateStatusByContact(ctx context.Context, contactID uint, status models.CampaignContactStatus) error
}

// PlatformSettingsRepository defines operations for the settings row
type PlatformSettingsRepository interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
	Update(ctx context.Context, settings *models.PlatformSettings) error
}
