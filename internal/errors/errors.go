package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict      ErrorCode = "CONFLICT"

	// Booking
	ErrCodeSlotTaken       ErrorCode = "SLOT_TAKEN"
	ErrCodeSessionActive   ErrorCode = "SESSION_ACTIVE"
	ErrCodeSessionExpired  ErrorCode = "SESSION_EXPIRED"
	ErrCodeNoAvailability  ErrorCode = "NO_AVAILABILITY"
	ErrCodeBookingDisabled ErrorCode = "BOOKING_DISABLED"

	// Workflow configuration
	ErrCodeWorkflowConfig  ErrorCode = "WORKFLOW_CONFIG_ERROR"
	ErrCodeUnknownStepType ErrorCode = "UNKNOWN_STEP_TYPE"

	// Channel
	ErrCodeChannelSend        ErrorCode = "CHANNEL_SEND_FAILED"
	ErrCodeChannelUnsupported ErrorCode = "CHANNEL_UNSUPPORTED"

	// Authentication
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeExternal ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func SlotTaken() *AppError {
	return New(ErrCodeSlotTaken, "Requested slot is no longer available")
}

func SessionActive() *AppError {
	return New(ErrCodeSessionActive, "An active conversation already exists for this user")
}

func SessionExpired() *AppError {
	return New(ErrCodeSessionExpired, "Conversation session has expired")
}

func NoAvailability(date string) *AppError {
	return New(ErrCodeNoAvailability, fmt.Sprintf("No available slots on %s", date))
}

func BookingDisabled() *AppError {
	return New(ErrCodeBookingDisabled, "Booking is not enabled for this bot")
}

func WorkflowConfig(workflowID, reason string) *AppError {
	return New(ErrCodeWorkflowConfig, fmt.Sprintf("Workflow %s is misconfigured: %s", workflowID, reason))
}

func UnknownStepType(stepType string) *AppError {
	return New(ErrCodeUnknownStepType, fmt.Sprintf("Unknown workflow step type: %s", stepType))
}

func ChannelSend(channel string, cause error) *AppError {
	return Wrap(ErrCodeChannelSend, fmt.Sprintf("Failed to send on %s channel", channel), cause)
}

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func InvalidToken(message string) *AppError {
	return New(ErrCodeInvalidToken, message)
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
