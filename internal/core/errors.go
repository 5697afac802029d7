// Package core provides core types and interfaces for the completion gateway.
package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeInvalidPrompt indicates an empty or oversized prompt (400)
	ErrorTypeInvalidPrompt ErrorType = "invalid_prompt"
	// ErrorTypeUnknownModel indicates a model id missing from the registry (400)
	ErrorTypeUnknownModel ErrorType = "unknown_model"
	// ErrorTypeDuplicateModelSelection indicates the same model id was requested twice (400)
	ErrorTypeDuplicateModelSelection ErrorType = "duplicate_model_selection"
	// ErrorTypeInvalidModelSelection indicates an empty or oversized model list (400)
	ErrorTypeInvalidModelSelection ErrorType = "invalid_model_selection"
	// ErrorTypeInvalidPacing indicates a non-positive or oversized delay (400)
	ErrorTypeInvalidPacing ErrorType = "invalid_pacing"
	// ErrorTypeInvalidRequest indicates a malformed request body (400)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeRateLimited indicates the backend refused the call (429)
	ErrorTypeRateLimited ErrorType = "rate_limited"
	// ErrorTypeTimedOut indicates the backend did not answer in time (408)
	ErrorTypeTimedOut ErrorType = "timed_out"
	// ErrorTypeServiceUnavailable indicates the backend is temporarily down (503)
	ErrorTypeServiceUnavailable ErrorType = "service_unavailable"
	// ErrorTypeProvider indicates an upstream transport or vendor failure (502)
	ErrorTypeProvider ErrorType = "provider_error"
	// ErrorTypeInternal indicates an unexpected failure inside the gateway (500)
	ErrorTypeInternal ErrorType = "internal_error"
)

// GatewayError is the base error type for all gateway errors
type GatewayError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Provider   string    `json:"provider,omitempty"`
	ModelID    string    `json:"model_id,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *GatewayError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeInvalidPrompt, ErrorTypeUnknownModel, ErrorTypeDuplicateModelSelection,
		ErrorTypeInvalidModelSelection, ErrorTypeInvalidPacing, ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	case ErrorTypeTimedOut:
		return http.StatusRequestTimeout
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map.
// Internal errors never leak their message.
func (e *GatewayError) ToJSON() map[string]interface{} {
	message := e.Message
	if e.Type == ErrorTypeInternal {
		message = "an unexpected error occurred"
	}
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": message,
		},
	}
}

// IsRequestError reports whether the error was caused by the shape of the
// client request rather than by a backend.
func (e *GatewayError) IsRequestError() bool {
	switch e.Type {
	case ErrorTypeInvalidPrompt, ErrorTypeUnknownModel, ErrorTypeDuplicateModelSelection,
		ErrorTypeInvalidModelSelection, ErrorTypeInvalidPacing, ErrorTypeInvalidRequest:
		return true
	}
	return false
}

// NewInvalidPromptError creates a new invalid prompt error (400)
func NewInvalidPromptError(message string) *GatewayError {
	return &GatewayError{Type: ErrorTypeInvalidPrompt, Message: message}
}

// NewUnknownModelError creates a new unknown model error (400)
func NewUnknownModelError(modelID string, available []string) *GatewayError {
	return &GatewayError{
		Type:    ErrorTypeUnknownModel,
		Message: fmt.Sprintf("invalid model id %q, available: %v", modelID, available),
		ModelID: modelID,
	}
}

// NewDuplicateModelSelectionError creates a new duplicate model selection error (400)
func NewDuplicateModelSelectionError(modelID string) *GatewayError {
	return &GatewayError{
		Type:    ErrorTypeDuplicateModelSelection,
		Message: fmt.Sprintf("duplicate model ids are not allowed: %q", modelID),
		ModelID: modelID,
	}
}

// NewInvalidModelSelectionError creates a new invalid model selection error (400)
func NewInvalidModelSelectionError(message string) *GatewayError {
	return &GatewayError{Type: ErrorTypeInvalidModelSelection, Message: message}
}

// NewInvalidPacingError creates a new invalid pacing error (400)
func NewInvalidPacingError(message string) *GatewayError {
	return &GatewayError{Type: ErrorTypeInvalidPacing, Message: message}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *GatewayError {
	return &GatewayError{Type: ErrorTypeInvalidRequest, Message: message, Err: err}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(provider, message string) *GatewayError {
	return &GatewayError{Type: ErrorTypeRateLimited, Message: message, Provider: provider}
}

// NewTimeoutError creates a new timeout error (408)
func NewTimeoutError(provider, message string, err error) *GatewayError {
	return &GatewayError{Type: ErrorTypeTimedOut, Message: message, Provider: provider, Err: err}
}

// NewServiceUnavailableError creates a new service unavailable error (503)
func NewServiceUnavailableError(provider, message string) *GatewayError {
	return &GatewayError{Type: ErrorTypeServiceUnavailable, Message: message, Provider: provider}
}

// NewProviderError creates a new provider error (upstream failure)
func NewProviderError(provider string, statusCode int, message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeProvider,
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
		Err:        err,
	}
}

// NewInternalError creates a new internal error (500)
func NewInternalError(message string, err error) *GatewayError {
	return &GatewayError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// AsGatewayError converts any error into a GatewayError.
// Context deadlines become timeouts, cancellations and unknown errors become
// internal errors.
func AsGatewayError(err error) *GatewayError {
	if err == nil {
		return nil
	}
	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("", "request timed out", err)
	}
	return NewInternalError(err.Error(), err)
}

// ParseProviderError parses an error response from a provider and returns a
// provider error carrying the most useful message found in the body.
func ParseProviderError(provider string, statusCode int, body []byte, originalErr error) *GatewayError {
	message := string(body)
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
		message = msg.String()
	} else if msg := gjson.GetBytes(body, "message"); msg.Exists() && msg.String() != "" {
		message = msg.String()
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	return NewProviderError(provider, statusCode,
		fmt.Sprintf("provider returned status %d: %s", statusCode, message), originalErr)
}
