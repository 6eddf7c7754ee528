// Package services provides the business logic layer between the transports
// (HTTP handlers, queue worker, CLI) and the analysis pipeline.
package services

import (
	"context"
	"errors"

	"github.com/soltixdb/seasonal/internal/analytics"
)

// Error codes shared by every transport
const (
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeInvalidJSON      = "INVALID_JSON"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL_ERROR"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// FromError converts an error of any layer into a ServiceError. Pipeline error
// kinds keep their structured fields as details.
func FromError(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	var insufficient *analytics.InsufficientDataError
	if errors.As(err, &insufficient) {
		return NewServiceErrorWithDetails(CodeInsufficientData, err.Error(), map[string]interface{}{
			"need":   insufficient.Need,
			"have":   insufficient.Have,
			"reason": insufficient.Reason,
		})
	}

	var invalid *analytics.InvalidParameterError
	if errors.As(err, &invalid) {
		return NewServiceErrorWithDetails(CodeInvalidParameter, err.Error(), map[string]interface{}{
			"parameter": invalid.Name,
			"value":     invalid.Value,
			"reason":    invalid.Reason,
		})
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewServiceError(CodeTimeout, "analysis abandoned: "+err.Error())
	}

	return NewServiceError(CodeInternal, err.Error())
}
