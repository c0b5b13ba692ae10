package businessflow

import (
	"context"

	"github.com/farhadmsg/blastline/app/dto"
	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/repository"
)

// RouteKind tags the delivery path chosen for a dispatch. The kind is fixed
// when the route is selected and never re-decided on retry.
type RouteKind string

const (
	RouteAPIGateway     RouteKind = "api_gateway"
	RouteFixedSIM       RouteKind = "fixed_sim"
	RouteSIMPool        RouteKind = "sim_pool"
	RouteWhatsAppBridge RouteKind = "whatsapp_bridge"
	RouteWhatsAppCloud  RouteKind = "whatsapp_cloud"
)

// Route is the resolved delivery path for one dispatch request. Exactly the
// fields implied by Kind are set.
type Route struct {
	Kind RouteKind

	Gateway *models.Gateway
	SIMID   *uint
	SIMPool *SIMPool

	WhatsAppGateway *models.WhatsAppGateway
	Template        *models.WhatsAppTemplate
}

// Metered reports whether sends through this route consume prepaid credit.
// Device-routed SMS is not metered.
func (r *Route) Metered() bool {
	return r.Kind != RouteFixedSIM && r.Kind != RouteSIMPool
}

// SIMPool hands out SIM ids round-robin from a working set. Assigning a SIM
// removes it from the working set; when the set runs dry it is refilled from
// the full active set, so reuse within a large batch is expected and even.
type SIMPool struct {
	active  []uint
	working []uint
}

func NewSIMPool(activeIDs []uint) *SIMPool {
	pool := &SIMPool{active: activeIDs}
	pool.refill()
	return pool
}

func (p *SIMPool) refill() {
	p.working = make([]uint, len(p.active))
	copy(p.working, p.active)
}

// Next returns the next SIM id, refilling the working set on exhaustion.
func (p *SIMPool) Next() uint {
	if len(p.working) == 0 {
		p.refill()
	}
	id := p.working[0]
	p.working = p.working[1:]
	return id
}

// GatewaySelector resolves the delivery route for a dispatch request.
type GatewaySelector interface {
	SelectSMS(ctx context.Context, req *dto.DispatchRequest, customerID *uint, settings *models.PlatformSettings) (*Route, error)
	SelectWhatsApp(ctx context.Context, req *dto.DispatchRequest, customerID *uint) (*Route, error)
}

type GatewaySelectorImpl struct {
	gatewayRepo  repository.GatewayRepository
	simRepo      repository.DeviceSIMRepository
	waRepo       repository.WhatsAppGatewayRepository
	templateRepo repository.WhatsAppTemplateRepository
}

func NewGatewaySelector(
	gatewayRepo repository.GatewayRepository,
	simRepo repository.DeviceSIMRepository,
	waRepo repository.WhatsAppGatewayRepository,
	templateRepo repository.WhatsAppTemplateRepository,
) GatewaySelector {
	return &GatewaySelectorImpl{
		gatewayRepo:  gatewayRepo,
		simRepo:      simRepo,
		waRepo:       waRepo,
		templateRepo: templateRepo,
	}
}

// SelectSMS picks the SMS route: an explicit SIM or the SIM pool when the
// request or platform mode asks for device delivery, otherwise the requested
// or default API gateway.
func (s *GatewaySelectorImpl) SelectSMS(ctx context.Context, req *dto.DispatchRequest, customerID *uint, settings *models.PlatformSettings) (*Route, error) {
	deviceMode := req.SIMID != nil || req.UseSIMPool || settings.SMSGatewayMode == models.SMSGatewayModeDevice

	if deviceMode {
		if req.SIMID != nil {
			sim, err := s.simRepo.ByID(ctx, *req.SIMID)
			if err != nil {
				return nil, NewBusinessError("GATEWAY_SIM_LOOKUP_FAILED", "Failed to load SIM", err)
			}
			if sim == nil || sim.Status != models.DeviceSIMStatusActive {
				return nil, NewBusinessError("PRECONDITION_NO_ACTIVE_SIM", "Requested SIM is not active", ErrNoActiveSIM)
			}
			return &Route{Kind: RouteFixedSIM, SIMID: req.SIMID}, nil
		}

		ids, err := s.simRepo.ListActiveIDs(ctx)
		if err != nil {
			return nil, NewBusinessError("GATEWAY_SIM_LOOKUP_FAILED", "Failed to list active SIMs", err)
		}
		if len(ids) == 0 {
			return nil, NewBusinessError("PRECONDITION_NO_ACTIVE_SIM", "No active SIM available for device delivery", ErrNoActiveSIM)
		}
		return &Route{Kind: RouteSIMPool, SIMPool: NewSIMPool(ids)}, nil
	}

	if req.GatewayID != nil {
		gw, err := s.gatewayRepo.ByID(ctx, *req.GatewayID)
		if err != nil {
			return nil, NewBusinessError("GATEWAY_LOOKUP_FAILED", "Failed to load gateway", err)
		}
		if gw == nil || !gw.IsActive {
			return nil, NewBusinessError("PRECONDITION_NO_GATEWAY", "Requested gateway is not available", ErrNoGatewayAvailable)
		}
		return &Route{Kind: RouteAPIGateway, Gateway: gw}, nil
	}

	gw, err := s.gatewayRepo.Default(ctx, customerID)
	if err != nil {
		return nil, NewBusinessError("GATEWAY_LOOKUP_FAILED", "Failed to load default gateway", err)
	}
	if gw == nil {
		return nil, NewBusinessError("PRECONDITION_NO_GATEWAY", "No default gateway configured", ErrNoGatewayAvailable)
	}
	return &Route{Kind: RouteAPIGateway, Gateway: gw}, nil
}

// SelectWhatsApp picks the WhatsApp route. The bridge/cloud decision comes
// from the gateway record's mode; cloud routes also need a stored template.
func (s *GatewaySelectorImpl) SelectWhatsApp(ctx context.Context, req *dto.DispatchRequest, customerID *uint) (*Route, error) {
	gw, err := s.waRepo.FirstActive(ctx, customerID)
	if err != nil {
		return nil, NewBusinessError("GATEWAY_LOOKUP_FAILED", "Failed to load WhatsApp gateway", err)
	}
	if gw == nil {
		return nil, NewBusinessError("PRECONDITION_NO_WHATSAPP_GATEWAY", "No WhatsApp gateway available", ErrNoWhatsAppGateway)
	}

	switch gw.Mode {
	case models.WhatsAppModeBridge:
		return &Route{Kind: RouteWhatsAppBridge, WhatsAppGateway: gw}, nil
	case models.WhatsAppModeCloud:
		if req.TemplateName == "" {
			return nil, NewBusinessError("INPUT_TEMPLATE_REQUIRED", "Cloud delivery requires a template name", ErrWhatsAppTemplateNotFound)
		}
		tpl, err := s.templateRepo.ByName(ctx, gw.ID, req.TemplateName)
		if err != nil {
			return nil, NewBusinessError("GATEWAY_TEMPLATE_LOOKUP_FAILED", "Failed to load WhatsApp template", err)
		}
		if tpl == nil {
			return nil, NewBusinessErrorf("PRECONDITION_TEMPLATE_NOT_FOUND", "WhatsApp template %q not found", ErrWhatsAppTemplateNotFound, req.TemplateName)
		}
		return &Route{Kind: RouteWhatsAppCloud, WhatsAppGateway: gw, Template: tpl}, nil
	default:
		return nil, NewBusinessErrorf("PRECONDITION_NO_WHATSAPP_GATEWAY", "WhatsApp gateway %d has unknown mode %q", ErrNoWhatsAppGateway, gw.ID, gw.Mode)
	}
}
