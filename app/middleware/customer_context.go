package middleware

import (
	"github.com/farhadmsg/blastline/app/dto"
	"github.com/farhadmsg/blastline/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// CustomerHeader carries the account identity of the calling integration.
// Authentication proper happens upstream (API gateway / reverse proxy); by
// the time a request reaches this service the header is trusted.
const CustomerHeader = "X-Customer-UUID"

// CustomerContext resolves the X-Customer-UUID header to a customer row and
// stores its numeric ID in c.Locals("customer_id"). Requests without the
// header pass through unscoped; handlers that require a customer reject them.
func CustomerContext(customerRepo repository.CustomerRepository) fiber.Handler {
	return func(c fiber.Ctx) error {
		raw := c.Get(CustomerHeader)
		if raw == "" {
			return c.Next()
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{
				Success: false,
				Message: "Invalid customer identifier",
				Error: dto.ErrorDetail{
					Code: "INVALID_CUSTOMER_UUID",
				},
			})
		}

		customer, err := customerRepo.ByUUID(c.Context(), id)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
				Success: false,
				Message: "Failed to resolve customer",
				Error: dto.ErrorDetail{
					Code: "CUSTOMER_LOOKUP_FAILED",
				},
			})
		}
		if customer == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Customer not found",
				Error: dto.ErrorDetail{
					Code: "CUSTOMER_NOT_FOUND",
				},
			})
		}

		c.Locals("customer_id", customer.ID)
		return c.Next()
	}
}

// RequireCustomer rejects requests that reached a customer-scoped route
// without a resolved customer identity.
func RequireCustomer() fiber.Handler {
	return func(c fiber.Ctx) error {
		if _, ok := c.Locals("customer_id").(uint); !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Customer identity required",
				Error: dto.ErrorDetail{
					Code: "MISSING_CUSTOMER_ID",
				},
			})
		}
		return c.Next()
	}
}
