package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/farhadmsg/blastline/app/services"
	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/repository"
	"github.com/farhadmsg/blastline/utils"
)

// DeliveryExecutor drives one due message log through its delivery attempt.
// Claiming is a guarded status transition, so a log is attempted at most
// once per enqueue no matter how many workers poll it, and terminal states
// are never revisited.
type DeliveryExecutor interface {
	Execute(ctx context.Context, row *models.MessageLog) error
}

type DeliveryExecutorImpl struct {
	logRepo      repository.MessageLogRepository
	gatewayRepo  repository.GatewayRepository
	waRepo       repository.WhatsAppGatewayRepository
	templateRepo repository.WhatsAppTemplateRepository
	campaignRepo repository.CampaignContactRepository
	ledger       CreditLedger

	smsClient    services.SMSGatewayClient
	deviceClient services.DeviceGatewayClient
	bridgeClient services.WhatsAppBridgeClient
	cloudClient  services.WhatsAppCloudClient
	sessions     services.SessionRegistry

	logger *log.Logger
}

func NewDeliveryExecutor(
	logRepo repository.MessageLogRepository,
	gatewayRepo repository.GatewayRepository,
	waRepo repository.WhatsAppGatewayRepository,
	templateRepo repository.WhatsAppTemplateRepository,
	campaignRepo repository.CampaignContactRepository,
	ledger CreditLedger,
	smsClient services.SMSGatewayClient,
	deviceClient services.DeviceGatewayClient,
	bridgeClient services.WhatsAppBridgeClient,
	cloudClient services.WhatsAppCloudClient,
	sessions services.SessionRegistry,
	logger *log.Logger,
) DeliveryExecutor {
	return &DeliveryExecutorImpl{
		logRepo:      logRepo,
		gatewayRepo:  gatewayRepo,
		waRepo:       waRepo,
		templateRepo: templateRepo,
		campaignRepo: campaignRepo,
		ledger:       ledger,
		smsClient:    smsClient,
		deviceClient: deviceClient,
		bridgeClient: bridgeClient,
		cloudClient:  cloudClient,
		sessions:     sessions,
		logger:       logger,
	}
}

var dispatchableStates = []models.MessageStatus{models.MessageStatusPending, models.MessageStatusScheduled}

// Execute claims the log and runs the channel-specific delivery path. A
// false claim means another worker already took the row or an admin moved
// it; that is not an error.
func (e *DeliveryExecutorImpl) Execute(ctx context.Context, row *models.MessageLog) error {
	claimed, err := e.logRepo.TransitionStatus(ctx, row.ID, dispatchableStates, models.MessageStatusProcessing, nil)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	switch {
	case row.Channel == models.MessageChannelSMS && row.DeviceSIMID != nil:
		return e.deliverDeviceSMS(ctx, row)
	case row.Channel == models.MessageChannelSMS:
		return e.deliverAPISMS(ctx, row)
	case row.TemplateID != nil:
		return e.deliverCloudWhatsApp(ctx, row)
	default:
		return e.deliverBridgeWhatsApp(ctx, row)
	}
}

func (e *DeliveryExecutorImpl) deliverAPISMS(ctx context.Context, row *models.MessageLog) error {
	var creds *models.GatewayCredentials
	if row.APIGatewayID != nil {
		gw, err := e.gatewayRepo.ByID(ctx, *row.APIGatewayID)
		if err != nil {
			return e.fail(ctx, row, fmt.Sprintf("gateway lookup failed: %v", err))
		}
		if gw != nil {
			creds, err = gw.DecodeCredentials()
			if err != nil {
				return e.fail(ctx, row, fmt.Sprintf("gateway credentials malformed: %v", err))
			}
		}
	}

	result, err := e.smsClient.Send(ctx, row.To, row.Message, creds)
	if err != nil {
		return e.fail(ctx, row, err.Error())
	}
	if !result.Success {
		return e.failWithResponse(ctx, row, result.Error, result.RawResponse)
	}
	return e.succeed(ctx, row, models.MessageStatusDelivered, result.RawResponse)
}

// deliverDeviceSMS relays through a device SIM. This path is not metered,
// so its failure branch never touches the ledger.
func (e *DeliveryExecutorImpl) deliverDeviceSMS(ctx context.Context, row *models.MessageLog) error {
	result, err := e.deviceClient.Send(ctx, *row.DeviceSIMID, row.To, row.Message)
	if err != nil {
		return e.fail(ctx, row, err.Error())
	}
	if !result.Success {
		return e.failWithResponse(ctx, row, result.Error, result.RawResponse)
	}
	return e.succeed(ctx, row, models.MessageStatusDelivered, result.RawResponse)
}

func (e *DeliveryExecutorImpl) deliverBridgeWhatsApp(ctx context.Context, row *models.MessageLog) error {
	if row.WhatsAppGatewayID == nil {
		return e.fail(ctx, row, "no WhatsApp gateway on message log")
	}
	gw, err := e.waRepo.ByID(ctx, *row.WhatsAppGatewayID)
	if err != nil || gw == nil {
		return e.fail(ctx, row, "WhatsApp gateway lookup failed")
	}

	session, ok := e.sessions.Get(gw.SessionID)
	if !ok || session.State() != services.SessionStateOpen {
		return e.fail(ctx, row, fmt.Sprintf("session %s unavailable", gw.SessionID))
	}

	media, err := row.Media()
	if err != nil {
		return e.fail(ctx, row, fmt.Sprintf("media descriptor malformed: %v", err))
	}

	result, err := e.bridgeClient.Send(ctx, gw.SessionID, row.To, row.Message, media)
	if err != nil {
		return e.fail(ctx, row, err.Error())
	}
	if !result.Success {
		return e.failWithResponse(ctx, row, result.Error, result.RawResponse)
	}
	return e.succeed(ctx, row, models.MessageStatusSuccess, result.RawResponse)
}

// deliverCloudWhatsApp sends a template message. Acceptance by the provider
// leaves the log in Processing with the raw response stored; final delivery
// state arrives through the provider's webhook, not here.
func (e *DeliveryExecutorImpl) deliverCloudWhatsApp(ctx context.Context, row *models.MessageLog) error {
	if row.WhatsAppGatewayID == nil {
		return e.fail(ctx, row, "no WhatsApp gateway on message log")
	}
	gw, err := e.waRepo.ByID(ctx, *row.WhatsAppGatewayID)
	if err != nil || gw == nil {
		return e.fail(ctx, row, "WhatsApp gateway lookup failed")
	}
	tpl, err := e.templateRepo.ByID(ctx, *row.TemplateID)
	if err != nil || tpl == nil {
		return e.fail(ctx, row, "WhatsApp template lookup failed")
	}

	result, err := e.cloudClient.SendTemplate(ctx, gw.PhoneNumberID, gw.AccessToken, row.To, tpl.Name, tpl.LanguageCode)
	if err != nil {
		return e.fail(ctx, row, err.Error())
	}
	if !result.Success {
		return e.failWithResponse(ctx, row, result.Error, result.RawResponse)
	}

	_, err = e.logRepo.TransitionStatus(ctx, row.ID,
		[]models.MessageStatus{models.MessageStatusProcessing},
		models.MessageStatusProcessing,
		map[string]any{"response_gateway": result.RawResponse})
	if err != nil {
		return err
	}
	e.mirrorCampaign(ctx, row, models.CampaignContactStatusSent)
	return nil
}

func (e *DeliveryExecutorImpl) succeed(ctx context.Context, row *models.MessageLog, status models.MessageStatus, rawResponse string) error {
	now := utils.UTCNow()
	won, err := e.logRepo.TransitionStatus(ctx, row.ID,
		[]models.MessageStatus{models.MessageStatusProcessing},
		status,
		map[string]any{
			"response_gateway": rawResponse,
			"delivered_at":     now,
		})
	if err != nil {
		return err
	}
	if won {
		e.mirrorCampaign(ctx, row, models.CampaignContactStatusSent)
	}
	return nil
}

func (e *DeliveryExecutorImpl) fail(ctx context.Context, row *models.MessageLog, reason string) error {
	return e.failWithResponse(ctx, row, reason, "")
}

// failWithResponse moves the log to Failed and refunds billed credit. The
// provider's error message, not the raw body, goes into response_gateway.
// Only the transition winner refunds, which keeps the refund exactly-once
// even when two paths race to fail the same log. Refund bookkeeping errors
// are surfaced, never swallowed.
func (e *DeliveryExecutorImpl) failWithResponse(ctx context.Context, row *models.MessageLog, reason, rawResponse string) error {
	updates := map[string]any{}
	if reason != "" {
		updates["response_gateway"] = reason
	} else if rawResponse != "" {
		updates["response_gateway"] = rawResponse
	}

	won, err := e.logRepo.TransitionStatus(ctx, row.ID,
		[]models.MessageStatus{models.MessageStatusProcessing},
		models.MessageStatusFailed,
		updates)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	e.logger.Printf("message %d to %s failed: %s", row.ID, row.To, reason)
	e.mirrorCampaign(ctx, row, models.CampaignContactStatusFailed)

	if _, err := e.ledger.RefundMessage(ctx, row, reason); err != nil {
		return fmt.Errorf("message %d failed and refund errored: %w", row.ID, err)
	}
	return nil
}

func (e *DeliveryExecutorImpl) mirrorCampaign(ctx context.Context, row *models.MessageLog, status models.CampaignContactStatus) {
	if row.ContactID == nil {
		return
	}
	if err := e.campaignRepo.UpdateStatusByContact(ctx, *row.ContactID, status); err != nil {
		e.logger.Printf("failed to mirror campaign status for contact %d: %v", *row.ContactID, err)
	}
}
