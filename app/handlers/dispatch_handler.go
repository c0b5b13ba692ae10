package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/farhadmsg/blastline/app/dto"
	businessflow "github.com/farhadmsg/blastline/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// DispatchHandlerInterface defines the contract for message dispatch handlers
type DispatchHandlerInterface interface {
	Dispatch(c fiber.Ctx) error
}

// DispatchHandler handles outbound message dispatch requests
type DispatchHandler struct {
	dispatchFlow businessflow.DispatchFlow
	validator    *validator.Validate
}

// NewDispatchHandler creates a new dispatch handler
func NewDispatchHandler(dispatchFlow businessflow.DispatchFlow) *DispatchHandler {
	return &DispatchHandler{
		dispatchFlow: dispatchFlow,
		validator:    validator.New(),
	}
}

func (h *DispatchHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *DispatchHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Dispatch accepts a message, resolves its recipients, debits credit, and
// persists one message log per recipient for the background worker to send.
// @Summary Dispatch messages
// @Description Resolve recipients and enqueue SMS or WhatsApp messages for delivery
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body dto.DispatchRequest true "Dispatch request"
// @Success 202 {object} dto.APIResponse{data=dto.DispatchResponse} "Messages accepted for delivery"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Customer not found or inactive"
// @Failure 402 {object} dto.APIResponse "Insufficient credit"
// @Failure 422 {object} dto.APIResponse "No route available for the requested channel"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/messages/dispatch [post]
func (h *DispatchHandler) Dispatch(c fiber.Ctx) error {
	var req dto.DispatchRequest
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

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))

	// Device and shared-gateway sends may run unscoped; customer identity is
	// required only when the route is metered, which the flow enforces.
	var customerID *uint
	if id, ok := c.Locals("customer_id").(uint); ok {
		customerID = &id
	}

	result, err := h.dispatchFlow.Dispatch(h.createRequestContext(c, "/api/v1/messages/dispatch"), &req, customerID, metadata)
	if err != nil {
		switch {
		case businessflow.IsCustomerNotFound(err):
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		case businessflow.IsAccountInactive(err):
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer account is inactive", "ACCOUNT_INACTIVE", nil)
		case businessflow.IsInsufficientCredit(err):
			return h.ErrorResponse(c, fiber.StatusPaymentRequired, "Insufficient credit for this dispatch", "INSUFFICIENT_CREDIT", nil)
		case businessflow.IsMessageRequired(err),
			businessflow.IsInvalidChannel(err),
			businessflow.IsInvalidEncoding(err),
			businessflow.IsInvalidMediaType(err),
			businessflow.IsScheduleTimeInPast(err),
			businessflow.IsNoRecipientsResolved(err),
			businessflow.IsUnsupportedFileFormat(err),
			businessflow.IsInvalidAttributeType(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), businessErrorCode(err, "INVALID_DISPATCH_REQUEST"), nil)
		case businessflow.IsNoGatewayAvailable(err),
			businessflow.IsNoActiveSIM(err),
			businessflow.IsNoWhatsAppGateway(err),
			businessflow.IsWhatsAppTemplateNotFound(err):
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, err.Error(), businessErrorCode(err, "NO_ROUTE_AVAILABLE"), nil)
		}

		log.Println("Message dispatch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Message dispatch failed", "DISPATCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Messages accepted for delivery", result)
}

// businessErrorCode extracts the machine-readable code from a business error,
// falling back when the error is a bare sentinel.
func businessErrorCode(err error, fallback string) string {
	var be *businessflow.BusinessError
	if errors.As(err, &be) && be.Code != "" {
		return be.Code
	}
	return fallback
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *DispatchHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, "request_id", c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)

	return ctx
}
