package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/farhadmsg/blastline/app/dto"
	businessflow "github.com/farhadmsg/blastline/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// MessageLogHandlerInterface defines the contract for message log handlers
type MessageLogHandlerInterface interface {
	ListMessageLogs(c fiber.Ctx) error
	ListAllMessageLogs(c fiber.Ctx) error
	OverrideStatus(c fiber.Ctx) error
	DeleteMessageLog(c fiber.Ctx) error
	ListCreditLogs(c fiber.Ctx) error
}

// MessageLogHandler handles message log listing, admin overrides, deletion,
// and the customer credit ledger view
type MessageLogHandler struct {
	logFlow   businessflow.MessageLogFlow
	validator *validator.Validate
}

// NewMessageLogHandler creates a new message log handler
func NewMessageLogHandler(logFlow businessflow.MessageLogFlow) *MessageLogHandler {
	return &MessageLogHandler{
		logFlow:   logFlow,
		validator: validator.New(),
	}
}

func (h *MessageLogHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *MessageLogHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListMessageLogs lists the calling customer's message logs
// @Summary List message logs
// @Description List the authenticated customer's message logs with filters and pagination
// @Tags Messages
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Param channel query string false "Filter by channel (sms, whatsapp)"
// @Param status query string false "Filter by status"
// @Param to query string false "Filter by destination"
// @Success 200 {object} dto.APIResponse{data=dto.ListMessageLogsResponse} "Message logs"
// @Failure 400 {object} dto.APIResponse "Invalid filter parameters"
// @Failure 401 {object} dto.APIResponse "Customer identity required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/messages [get]
func (h *MessageLogHandler) ListMessageLogs(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	return h.listMessageLogs(c, &customerID, "/api/v1/messages")
}

// ListAllMessageLogs lists message logs across all customers
// @Summary List all message logs
// @Description List message logs across every customer, including unscoped device sends
// @Tags Admin
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Param channel query string false "Filter by channel (sms, whatsapp)"
// @Param status query string false "Filter by status"
// @Success 200 {object} dto.APIResponse{data=dto.ListMessageLogsResponse} "Message logs"
// @Failure 400 {object} dto.APIResponse "Invalid filter parameters"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/messages [get]
func (h *MessageLogHandler) ListAllMessageLogs(c fiber.Ctx) error {
	return h.listMessageLogs(c, nil, "/api/v1/admin/messages")
}

func (h *MessageLogHandler) listMessageLogs(c fiber.Ctx, customerID *uint, endpoint string) error {
	req := &dto.ListMessageLogsRequest{
		Pagination: parsePagination(c),
		Channel:    c.Query("channel"),
		Status:     c.Query("status"),
		To:         c.Query("to"),
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "start_date must be RFC3339", "INVALID_DATE", nil)
		}
		req.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "end_date must be RFC3339", "INVALID_DATE", nil)
		}
		req.EndDate = &t
	}

	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.logFlow.List(h.createRequestContext(c, endpoint), req, customerID)
	if err != nil {
		if businessflow.IsStartDateAfterEndDate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "start_date must not be after end_date", "INVALID_DATE_RANGE", nil)
		}

		log.Println("List message logs failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list message logs", "LIST_MESSAGES_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Message logs retrieved successfully", result)
}

// OverrideStatus forces a message log into a new status
// @Summary Override message status
// @Description Force a message log into a new status; Pending re-enqueues with a credit re-check, Failed refunds
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Message log ID"
// @Param request body dto.OverrideStatusRequest true "Target status"
// @Success 200 {object} dto.APIResponse{data=dto.OverrideStatusResponse} "Status overridden"
// @Failure 400 {object} dto.APIResponse "Invalid status or transition"
// @Failure 402 {object} dto.APIResponse "Insufficient credit for re-enqueue"
// @Failure 404 {object} dto.APIResponse "Message log not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/messages/{id}/status [put]
func (h *MessageLogHandler) OverrideStatus(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message log ID", "INVALID_MESSAGE_ID", nil)
	}

	var req dto.OverrideStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.logFlow.OverrideStatus(h.createRequestContext(c, "/api/v1/admin/messages/:id/status"), id, &req)
	if err != nil {
		switch {
		case businessflow.IsMessageLogNotFound(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "Message log not found", "MESSAGE_NOT_FOUND", nil)
		case businessflow.IsInvalidStatusOverride(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_STATUS_OVERRIDE", nil)
		case businessflow.IsInsufficientCredit(err):
			return h.ErrorResponse(c, fiber.StatusPaymentRequired, "Insufficient credit to re-enqueue message", "INSUFFICIENT_CREDIT", nil)
		}

		log.Println("Status override failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to override message status", "STATUS_OVERRIDE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Message status overridden successfully", result)
}

// DeleteMessageLog deletes a message log, refunding undelivered billed sends
// @Summary Delete message log
// @Description Delete a message log; undelivered billed messages are refunded first
// @Tags Messages
// @Produce json
// @Param id path int true "Message log ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteMessageLogResponse} "Message log deleted"
// @Failure 400 {object} dto.APIResponse "Invalid message log ID"
// @Failure 403 {object} dto.APIResponse "Message log belongs to another customer"
// @Failure 404 {object} dto.APIResponse "Message log not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/messages/{id} [delete]
func (h *MessageLogHandler) DeleteMessageLog(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message log ID", "INVALID_MESSAGE_ID", nil)
	}

	var customerID *uint
	if v, ok := c.Locals("customer_id").(uint); ok {
		customerID = &v
	}

	result, err := h.logFlow.Delete(h.createRequestContext(c, "/api/v1/messages/:id"), id, customerID)
	if err != nil {
		switch {
		case businessflow.IsMessageLogNotFound(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "Message log not found", "MESSAGE_NOT_FOUND", nil)
		case businessflow.IsMessageLogAccessDenied(err):
			return h.ErrorResponse(c, fiber.StatusForbidden, "Message log access denied", "MESSAGE_ACCESS_DENIED", nil)
		}

		log.Println("Message log deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete message log", "MESSAGE_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Message log deleted successfully", result)
}

// ListCreditLogs lists the calling customer's credit ledger entries
// @Summary List credit logs
// @Description List the authenticated customer's debit and refund ledger entries
// @Tags Credits
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.ListCreditLogsResponse} "Credit logs"
// @Failure 401 {object} dto.APIResponse "Customer identity required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/credits [get]
func (h *MessageLogHandler) ListCreditLogs(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.logFlow.ListCredits(h.createRequestContext(c, "/api/v1/credits"), customerID, parsePagination(c))
	if err != nil {
		log.Println("List credit logs failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list credit logs", "LIST_CREDITS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Credit logs retrieved successfully", result)
}

func parsePagination(c fiber.Ctx) dto.Pagination {
	p := dto.Pagination{Page: 1}
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size", "50")); err == nil && v > 0 {
		if v > 100 {
			v = 100
		}
		p.PageSize = v
	}
	return p
}

func parseIDParam(c fiber.Ctx) (uint, error) {
	v, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *MessageLogHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, "request_id", c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)

	return ctx
}
