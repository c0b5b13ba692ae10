// Package businessflow contains the core business logic and use cases for message dispatch workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Customer-related errors
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInsufficientCredit = errors.New("insufficient credit")

	// Dispatch request errors
	ErrMessageRequired       = errors.New("message content is required")
	ErrNoRecipientsResolved  = errors.New("no recipients resolved")
	ErrInvalidChannel        = errors.New("invalid channel")
	ErrInvalidEncoding       = errors.New("invalid encoding")
	ErrInvalidMediaType      = errors.New("invalid media type")
	ErrScheduleTimeInPast    = errors.New("schedule time is in the past")
	ErrUnsupportedFileFormat = errors.New("unsupported recipient file format")
	ErrInvalidAttributeType  = errors.New("invalid attribute type")

	// Gateway selection errors
	ErrNoGatewayAvailable         = errors.New("no gateway available")
	ErrNoActiveSIM                = errors.New("no active SIM available")
	ErrNoWhatsAppGateway          = errors.New("no WhatsApp gateway available")
	ErrWhatsAppTemplateNotFound   = errors.New("WhatsApp template not found")
	ErrWhatsAppSessionUnavailable = errors.New("WhatsApp session unavailable")

	// Message log errors
	ErrMessageLogNotFound     = errors.New("message log not found")
	ErrMessageLogAccessDenied = errors.New("message log access denied")
	ErrInvalidStatusOverride  = errors.New("invalid status override")
	ErrRefundAlreadyApplied   = errors.New("refund already applied")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsInsufficientCredit(err error) bool {
	return errors.Is(err, ErrInsufficientCredit)
}

func IsMessageRequired(err error) bool {
	return errors.Is(err, ErrMessageRequired)
}

func IsNoRecipientsResolved(err error) bool {
	return errors.Is(err, ErrNoRecipientsResolved)
}

func IsInvalidChannel(err error) bool {
	return errors.Is(err, ErrInvalidChannel)
}

func IsInvalidEncoding(err error) bool {
	return errors.Is(err, ErrInvalidEncoding)
}

func IsInvalidMediaType(err error) bool {
	return errors.Is(err, ErrInvalidMediaType)
}

func IsScheduleTimeInPast(err error) bool {
	return errors.Is(err, ErrScheduleTimeInPast)
}

func IsUnsupportedFileFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedFileFormat)
}

func IsInvalidAttributeType(err error) bool {
	return errors.Is(err, ErrInvalidAttributeType)
}

func IsNoGatewayAvailable(err error) bool {
	return errors.Is(err, ErrNoGatewayAvailable)
}

func IsNoActiveSIM(err error) bool {
	return errors.Is(err, ErrNoActiveSIM)
}

func IsNoWhatsAppGateway(err error) bool {
	return errors.Is(err, ErrNoWhatsAppGateway)
}

func IsWhatsAppTemplateNotFound(err error) bool {
	return errors.Is(err, ErrWhatsAppTemplateNotFound)
}

func IsWhatsAppSessionUnavailable(err error) bool {
	return errors.Is(err, ErrWhatsAppSessionUnavailable)
}

func IsMessageLogNotFound(err error) bool {
	return errors.Is(err, ErrMessageLogNotFound)
}

func IsMessageLogAccessDenied(err error) bool {
	return errors.Is(err, ErrMessageLogAccessDenied)
}

func IsInvalidStatusOverride(err error) bool {
	return errors.Is(err, ErrInvalidStatusOverride)
}

func IsRefundAlreadyApplied(err error) bool {
	return errors.Is(err, ErrRefundAlreadyApplied)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsStartDateAfterEndDate(err error) bool {
	return errors.Is(err, ErrStartDateAfterEndDate)
}
