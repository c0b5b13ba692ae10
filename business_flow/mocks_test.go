package businessflow

import (
	"context"

	"github.com/farhadmsg/blastline/models"
)

// fakeBase supplies no-op CRUD so fakes only implement what a test exercises.
type fakeBase[T any, F any] struct{}

func (fakeBase[T, F]) ByID(ctx context.Context, id uint) (*T, error)      { return nil, nil }
func (fakeBase[T, F]) Save(ctx context.Context, entity *T) error          { return nil }
func (fakeBase[T, F]) SaveBatch(ctx context.Context, entities []*T) error { return nil }

type fakeGatewayRepo struct {
	fakeBase[models.Gateway, models.GatewayFilter]
	gateways       map[uint]*models.Gateway
	defaultGateway *models.Gateway
}

func (f *fakeGatewayRepo) ByID(ctx context.Context, id uint) (*models.Gateway, error) {
	return f.gateways[id], nil
}

func (f *fakeGatewayRepo) Default(ctx context.Context, customerID *uint) (*models.Gateway, error) {
	return f.defaultGateway, nil
}

func (f *fakeGatewayRepo) ListActive(ctx context.Context) ([]*models.Gateway, error) {
	return nil, nil
}

type fakeSIMRepo struct {
	fakeBase[models.DeviceSIM, models.DeviceSIMFilter]
	sims      map[uint]*models.DeviceSIM
	activeIDs []uint
}

func (f *fakeSIMRepo) ByID(ctx context.Context, id uint) (*models.DeviceSIM, error) {
	return f.sims[id], nil
}

func (f *fakeSIMRepo) ListActiveIDs(ctx context.Context) ([]uint, error) {
	return f.activeIDs, nil
}

func (f *fakeSIMRepo) ListActive(ctx context.Context) ([]*models.DeviceSIM, error) {
	return nil, nil
}

type fakeWhatsAppGatewayRepo struct {
	fakeBase[models.WhatsAppGateway, models.WhatsAppGatewayFilter]
	active *models.WhatsAppGateway
}

func (f *fakeWhatsAppGatewayRepo) BySessionID(ctx context.Context, sessionID string) (*models.WhatsAppGateway, error) {
	if f.active != nil && f.active.SessionID == sessionID {
		return f.active, nil
	}
	return nil, nil
}

func (f *fakeWhatsAppGatewayRepo) FirstActive(ctx context.Context, customerID *uint) (*models.WhatsAppGateway, error) {
	return f.active, nil
}

type fakeTemplateRepo struct {
	fakeBase[models.WhatsAppTemplate, models.WhatsAppTemplateFilter]
	templates map[string]*models.WhatsAppTemplate
}

func (f *fakeTemplateRepo) ByName(ctx context.Context, gatewayID uint, name string) (*models.WhatsAppTemplate, error) {
	return f.templates[name], nil
}

type fakeContactRepo struct {
	fakeBase[models.Contact, models.ContactFilter]
	byGroup map[uint][]*models.Contact
}

func (f *fakeContactRepo) ByGroupIDs(ctx context.Context, groupIDs []uint) ([]*models.Contact, error) {
	var out []*models.Contact
	for _, id := range groupIDs {
		out = append(out, f.byGroup[id]...)
	}
	return out, nil
}
