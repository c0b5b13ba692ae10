package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/farhadmsg/blastline/app/dto"
	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/repository"
	"github.com/farhadmsg/blastline/utils"
	"gorm.io/gorm"
)

// DispatchFlow accepts a send request, resolves recipients, bills credit,
// and writes the per-recipient message logs the delivery worker consumes.
type DispatchFlow interface {
	Dispatch(ctx context.Context, req *dto.DispatchRequest, customerID *uint, metadata *ClientMetadata) (*dto.DispatchResponse, error)
}

type DispatchFlowImpl struct {
	db *gorm.DB

	settingsRepo repository.PlatformSettingsRepository
	customerRepo repository.CustomerRepository
	logRepo      repository.MessageLogRepository
	ledger       CreditLedger
	resolver     RecipientResolver
	renderer     *ContentRenderer
	selector     GatewaySelector
}

func NewDispatchFlow(
	db *gorm.DB,
	settingsRepo repository.PlatformSettingsRepository,
	customerRepo repository.CustomerRepository,
	logRepo repository.MessageLogRepository,
	ledger CreditLedger,
	resolver RecipientResolver,
	renderer *ContentRenderer,
	selector GatewaySelector,
) DispatchFlow {
	return &DispatchFlowImpl{
		db:           db,
		settingsRepo: settingsRepo,
		customerRepo: customerRepo,
		logRepo:      logRepo,
		ledger:       ledger,
		resolver:     resolver,
		renderer:     renderer,
		selector:     selector,
	}
}

// Dispatch runs the full accept path. The debit and all log inserts share
// one transaction: insufficient balance means zero logs are created and the
// caller gets a precondition error with no side effects.
func (f *DispatchFlowImpl) Dispatch(ctx context.Context, req *dto.DispatchRequest, customerID *uint, metadata *ClientMetadata) (*dto.DispatchResponse, error) {
	channel := models.MessageChannel(req.Channel)
	if !channel.Valid() {
		return nil, NewBusinessErrorf("INPUT_CHANNEL", "Unknown channel %q", ErrInvalidChannel, req.Channel)
	}
	if req.Message == "" {
		return nil, NewBusinessError("INPUT_MESSAGE_REQUIRED", "Message content is required", ErrMessageRequired)
	}
	encoding := models.MessageEncoding(req.Encoding)
	if req.Encoding == "" {
		encoding = models.MessageEncodingPlain
	}
	if !encoding.Valid() {
		return nil, NewBusinessErrorf("INPUT_ENCODING", "Unknown encoding %q", ErrInvalidEncoding, req.Encoding)
	}
	if req.Media != nil && !models.MediaType(req.Media.Type).Valid() {
		return nil, NewBusinessErrorf("INPUT_MEDIA_TYPE", "Unknown media type %q", ErrInvalidMediaType, req.Media.Type)
	}

	now := utils.UTCNow()
	initiated := now
	scheduled := false
	if req.ScheduleAt != nil {
		at := utils.TimeToUTC(*req.ScheduleAt)
		if at.Before(now.Add(-time.Minute)) {
			return nil, NewBusinessError("INPUT_SCHEDULE_TIME", "Schedule time is in the past", ErrScheduleTimeInPast)
		}
		if at.After(now) {
			initiated = at
			scheduled = true
		}
	}

	if customerID != nil {
		customer, err := f.customerRepo.ByID(ctx, *customerID)
		if err != nil {
			return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to load customer", err)
		}
		if customer == nil {
			return nil, NewBusinessError("PRECONDITION_CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
		}
		if !customer.IsActive {
			return nil, NewBusinessError("PRECONDITION_ACCOUNT_INACTIVE", "Customer account is inactive", ErrAccountInactive)
		}
	}

	settings, err := f.settingsRepo.Get(ctx)
	if err != nil {
		return nil, NewBusinessError("SETTINGS_LOAD_FAILED", "Failed to load platform settings", err)
	}
	wordLength := settings.WordLengthFor(encoding)

	recipients, err := f.resolver.Resolve(ctx, req, channel)
	if err != nil {
		return nil, err
	}

	var route *Route
	if channel == models.MessageChannelWhatsApp {
		route, err = f.selector.SelectWhatsApp(ctx, req, customerID)
	} else {
		route, err = f.selector.SelectSMS(ctx, req, customerID, settings)
	}
	if err != nil {
		return nil, err
	}

	var fileInfo json.RawMessage
	if route.Kind == RouteWhatsAppBridge && req.Media != nil {
		fileInfo, err = json.Marshal(models.MediaInfo{
			Type: models.MediaType(req.Media.Type),
			URL:  req.Media.URL,
			Name: req.Media.Name,
		})
		if err != nil {
			return nil, NewBusinessError("INPUT_MEDIA_ENCODE_FAILED", "Failed to encode media descriptor", err)
		}
	}

	status := models.MessageStatusPending
	if scheduled {
		status = models.MessageStatusScheduled
	}

	logs := make([]*models.MessageLog, 0, len(recipients))
	var totalUnits uint64
	for _, rec := range recipients {
		body := f.renderer.Render(req.Message, rec, channel, settings)
		row := &models.MessageLog{
			To:             rec.Destination,
			Message:        body,
			Channel:        channel,
			Status:         status,
			Encoding:       encoding,
			WordLength:     wordLength,
			ScheduleStatus: models.ScheduleStatusImmediate,
			InitiatedTime:  initiated,
			FileInfo:       fileInfo,
			ContactID:      rec.ContactID,
			CustomerID:     customerID,
		}
		if scheduled {
			row.ScheduleStatus = models.ScheduleStatusScheduled
		}

		switch route.Kind {
		case RouteAPIGateway:
			row.APIGatewayID = &route.Gateway.ID
		case RouteFixedSIM:
			row.DeviceSIMID = route.SIMID
		case RouteSIMPool:
			simID := route.SIMPool.Next()
			row.DeviceSIMID = &simID
		case RouteWhatsAppBridge:
			row.WhatsAppGatewayID = &route.WhatsAppGateway.ID
		case RouteWhatsAppCloud:
			row.WhatsAppGatewayID = &route.WhatsAppGateway.ID
			row.TemplateID = &route.Template.ID
		}

		totalUnits += row.BillingUnits()
		logs = append(logs, row)
	}

	billed := route.Metered() && customerID != nil

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if billed {
			details := fmt.Sprintf("dispatch of %d %s messages", len(logs), channel)
			if _, err := f.ledger.Debit(txCtx, *customerID, channel, totalUnits, details); err != nil {
				return err
			}
		}
		return f.logRepo.SaveBatch(txCtx, logs)
	})
	if err != nil {
		var be *BusinessError
		if errors.As(err, &be) {
			return nil, be
		}
		return nil, NewBusinessError("DISPATCH_PERSIST_FAILED", "Failed to persist dispatch", err)
	}

	ids := make([]uint, len(logs))
	for i, row := range logs {
		ids[i] = row.ID
	}

	return &dto.DispatchResponse{
		Message:       "Dispatch accepted",
		Accepted:      len(logs),
		TotalUnits:    totalUnits,
		Scheduled:     scheduled,
		MessageLogIDs: ids,
	}, nil
}
