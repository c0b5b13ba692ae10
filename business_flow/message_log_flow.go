package businessflow

import (
	"context"
	"fmt"

	"github.com/farhadmsg/blastline/app/dto"
	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/repository"
	"github.com/farhadmsg/blastline/utils"
)

// MessageLogFlow serves the log listing, admin status override, and log
// deletion operations.
type MessageLogFlow interface {
	List(ctx context.Context, req *dto.ListMessageLogsRequest, customerID *uint) (*dto.ListMessageLogsResponse, error)
	OverrideStatus(ctx context.Context, id uint, req *dto.OverrideStatusRequest) (*dto.OverrideStatusResponse, error)
	Delete(ctx context.Context, id uint, customerID *uint) (*dto.DeleteMessageLogResponse, error)
	ListCredits(ctx context.Context, customerID uint, page dto.Pagination) (*dto.ListCreditLogsResponse, error)
}

type MessageLogFlowImpl struct {
	logRepo    repository.MessageLogRepository
	creditRepo repository.CreditLogRepository
	ledger     CreditLedger
}

func NewMessageLogFlow(logRepo repository.MessageLogRepository, creditRepo repository.CreditLogRepository, ledger CreditLedger) MessageLogFlow {
	return &MessageLogFlowImpl{logRepo: logRepo, creditRepo: creditRepo, ledger: ledger}
}

// List returns a page of logs. A nil customer id is the admin view over all
// accounts; a customer only ever sees their own rows.
func (f *MessageLogFlowImpl) List(ctx context.Context, req *dto.ListMessageLogsRequest, customerID *uint) (*dto.ListMessageLogsResponse, error) {
	if req.Page < 0 {
		return nil, NewBusinessError("INPUT_PAGE", "Page must be at least 1", ErrInvalidPage)
	}
	if req.StartDate != nil && req.EndDate != nil && req.StartDate.After(*req.EndDate) {
		return nil, NewBusinessError("INPUT_DATE_RANGE", "Start date cannot be after end date", ErrStartDateAfterEndDate)
	}

	filter := models.MessageLogFilter{
		CustomerID:    customerID,
		CreatedAfter:  req.StartDate,
		CreatedBefore: req.EndDate,
	}
	if req.Channel != "" {
		ch := models.MessageChannel(req.Channel)
		filter.Channel = &ch
	}
	if req.Status != "" {
		st := models.MessageStatus(req.Status)
		filter.Status = &st
	}
	if req.To != "" {
		to := utils.NormalizeDestination(req.To)
		filter.To = &to
	}

	total, err := f.logRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_LOG_COUNT_FAILED", "Failed to count message logs", err)
	}
	rows, err := f.logRepo.ByFilter(ctx, filter, req.Limit(), req.Offset())
	if err != nil {
		return nil, NewBusinessError("MESSAGE_LOG_LIST_FAILED", "Failed to list message logs", err)
	}

	items := make([]dto.MessageLogDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toMessageLogDTO(row))
	}
	return &dto.ListMessageLogsResponse{
		Message: "Message logs retrieved",
		Total:   total,
		Items:   items,
	}, nil
}

// OverrideStatus is the admin escape hatch and the only path allowed to
// move a log backwards. Forcing Pending re-enqueues the message: billed
// paths are debited again since any earlier failure was refunded.
func (f *MessageLogFlowImpl) OverrideStatus(ctx context.Context, id uint, req *dto.OverrideStatusRequest) (*dto.OverrideStatusResponse, error) {
	row, err := f.logRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_LOG_LOOKUP_FAILED", "Failed to load message log", err)
	}
	if row == nil {
		return nil, NewBusinessError("PRECONDITION_LOG_NOT_FOUND", "Message log not found", ErrMessageLogNotFound)
	}

	target := models.MessageStatus(req.Status)
	if !target.Valid() || target == models.MessageStatusScheduled {
		return nil, NewBusinessErrorf("INPUT_STATUS", "Cannot override to status %q", ErrInvalidStatusOverride, req.Status)
	}
	if row.Status == target {
		return &dto.OverrideStatusResponse{Message: "Status unchanged", ID: id, Status: string(target)}, nil
	}

	anyState := []models.MessageStatus{
		models.MessageStatusPending, models.MessageStatusScheduled, models.MessageStatusFailed,
		models.MessageStatusDelivered, models.MessageStatusProcessing, models.MessageStatusSuccess,
	}

	refunded := false
	switch target {
	case models.MessageStatusPending:
		if row.Billed() && row.CustomerID != nil && row.Status == models.MessageStatusFailed {
			details := fmt.Sprintf("re-dispatch of message %d to %s", row.ID, row.To)
			if _, err := f.ledger.Debit(ctx, *row.CustomerID, row.Channel, row.BillingUnits(), details); err != nil {
				return nil, err
			}
		}
		updates := map[string]any{"initiated_time": utils.UTCNow()}
		if req.SIMID != nil {
			updates["device_sim_id"] = *req.SIMID
			updates["api_gateway_id"] = nil
		}
		if _, err := f.logRepo.TransitionStatus(ctx, id, anyState, target, updates); err != nil {
			return nil, NewBusinessError("MESSAGE_LOG_OVERRIDE_FAILED", "Failed to override status", err)
		}

	case models.MessageStatusFailed:
		if _, err := f.logRepo.TransitionStatus(ctx, id, anyState, target, nil); err != nil {
			return nil, NewBusinessError("MESSAGE_LOG_OVERRIDE_FAILED", "Failed to override status", err)
		}
		refunded, err = f.ledger.RefundMessage(ctx, row, "admin override to failed")
		if err != nil {
			return nil, err
		}

	default:
		updates := map[string]any{"delivered_at": utils.UTCNow()}
		if _, err := f.logRepo.TransitionStatus(ctx, id, anyState, target, updates); err != nil {
			return nil, NewBusinessError("MESSAGE_LOG_OVERRIDE_FAILED", "Failed to override status", err)
		}
	}

	return &dto.OverrideStatusResponse{
		Message:  "Status overridden",
		ID:       id,
		Status:   string(target),
		Refunded: refunded,
	}, nil
}

// Delete removes a log. A billed log that never reached a terminal success
// state gets a compensating refund first; the refund is idempotent so
// deleting an already-refunded failed log does not double-credit.
func (f *MessageLogFlowImpl) Delete(ctx context.Context, id uint, customerID *uint) (*dto.DeleteMessageLogResponse, error) {
	row, err := f.logRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_LOG_LOOKUP_FAILED", "Failed to load message log", err)
	}
	if row == nil {
		return nil, NewBusinessError("PRECONDITION_LOG_NOT_FOUND", "Message log not found", ErrMessageLogNotFound)
	}
	if customerID != nil && (row.CustomerID == nil || *row.CustomerID != *customerID) {
		return nil, NewBusinessError("PRECONDITION_LOG_ACCESS", "Message log belongs to another account", ErrMessageLogAccessDenied)
	}

	refunded := false
	stillBilled := row.Status == models.MessageStatusPending ||
		row.Status == models.MessageStatusScheduled ||
		row.Status == models.MessageStatusProcessing
	if stillBilled {
		refunded, err = f.ledger.RefundMessage(ctx, row, "message log deleted")
		if err != nil {
			return nil, err
		}
	}

	if err := f.logRepo.Delete(ctx, id); err != nil {
		return nil, NewBusinessError("MESSAGE_LOG_DELETE_FAILED", "Failed to delete message log", err)
	}
	return &dto.DeleteMessageLogResponse{
		Message:  "Message log deleted",
		ID:       id,
		Refunded: refunded,
	}, nil
}

func (f *MessageLogFlowImpl) ListCredits(ctx context.Context, customerID uint, page dto.Pagination) (*dto.ListCreditLogsResponse, error) {
	rows, err := f.creditRepo.ListByCustomer(ctx, customerID, page.Limit(), page.Offset())
	if err != nil {
		return nil, NewBusinessError("CREDIT_LOG_LIST_FAILED", "Failed to list credit logs", err)
	}
	items := make([]dto.CreditLogDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.CreditLogDTO{
			ID:          row.ID,
			Channel:     string(row.Channel),
			Direction:   string(row.Direction),
			Amount:      row.Amount,
			PostBalance: row.PostBalance,
			TrxNumber:   row.TrxNumber,
			Details:     row.Details,
			CreatedAt:   row.CreatedAt,
		})
	}
	return &dto.ListCreditLogsResponse{
		Message: "Credit logs retrieved",
		Items:   items,
	}, nil
}

func toMessageLogDTO(row *models.MessageLog) dto.MessageLogDTO {
	return dto.MessageLogDTO{
		ID:              row.ID,
		To:              row.To,
		Message:         row.Message,
		Channel:         string(row.Channel),
		Status:          string(row.Status),
		Units:           row.BillingUnits(),
		APIGatewayID:    row.APIGatewayID,
		DeviceSIMID:     row.DeviceSIMID,
		InitiatedTime:   row.InitiatedTime,
		DeliveredAt:     row.DeliveredAt,
		ResponseGateway: row.ResponseGateway,
		CreatedAt:       row.CreatedAt,
	}
}
