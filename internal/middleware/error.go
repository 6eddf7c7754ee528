// Package middleware provides the fiber error handler and API-key authentication.
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/soltixdb/seasonal/internal/logging"
	"github.com/soltixdb/seasonal/internal/models"
	"github.com/soltixdb/seasonal/internal/services"
)

// StatusForCode maps a service error code to its HTTP status
func StatusForCode(code string) int {
	switch code {
	case services.CodeInsufficientData:
		return fiber.StatusUnprocessableEntity
	case services.CodeInvalidParameter, services.CodeInvalidJSON, services.CodeValidationFailed:
		return fiber.StatusBadRequest
	case services.CodeTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// codeForStatus derives an error code from an HTTP status text, e.g. 404 -> NOT_FOUND
func codeForStatus(status int) string {
	if status == fiber.StatusInternalServerError {
		return services.CodeInternal
	}
	text := utils.StatusMessage(status)
	if text == "" {
		return "ERROR"
	}
	text = strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text)
	return strings.ToUpper(text)
}

// ErrorHandler renders every error returned by a handler as an ErrorResponse.
// Service errors keep their code and details; fiber errors keep their status.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		detail := models.ErrorDetail{
			Code:    services.CodeInternal,
			Message: "Internal Server Error",
		}

		var svcErr *services.ServiceError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &svcErr):
			status = StatusForCode(svcErr.Code)
			detail = models.ErrorDetail{
				Code:    svcErr.Code,
				Message: svcErr.Message,
				Details: svcErr.Details,
			}
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			detail = models.ErrorDetail{
				Code:    codeForStatus(fiberErr.Code),
				Message: fiberErr.Message,
			}
		}

		log := logger.WithContext(c.UserContext())
		if status >= fiber.StatusInternalServerError {
			log.Error("Request error",
				"path", c.Path(),
				"method", c.Method(),
				"status", status,
				"error", err,
			)
		} else {
			log.Warn("Request rejected",
				"path", c.Path(),
				"method", c.Method(),
				"status", status,
				"code", detail.Code,
			)
		}

		return c.Status(status).JSON(models.ErrorResponse{Error: detail})
	}
}
