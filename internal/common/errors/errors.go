// Package errors provides the standardized error type used across the dispatcher.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeEventValidationFailed ErrorCode = "EVENT_VALIDATION_FAILED"
	ErrCodeEventDecodeFailed     ErrorCode = "EVENT_DECODE_FAILED"

	ErrCodeTemplateNotFound         ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateAlreadyExists    ErrorCode = "TEMPLATE_ALREADY_EXISTS"
	ErrCodeTemplateValidationFailed ErrorCode = "TEMPLATE_VALIDATION_FAILED"

	ErrCodePreferenceNotFound      ErrorCode = "PREFERENCE_NOT_FOUND"
	ErrCodePreferenceAlreadyExists ErrorCode = "PREFERENCE_ALREADY_EXISTS"

	ErrCodeNotificationNotFound      ErrorCode = "NOTIFICATION_NOT_FOUND"
	ErrCodeNotificationNotRetryable  ErrorCode = "NOTIFICATION_NOT_RETRYABLE"
	ErrCodeNotificationSendFailed    ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeRecipientMissing          ErrorCode = "RECIPIENT_MISSING"
	ErrCodePushTokenUnregistered     ErrorCode = "PUSH_TOKEN_UNREGISTERED"
	ErrCodeSenderCircuitOpen         ErrorCode = "SENDER_CIRCUIT_OPEN"
	ErrCodeRealtimeDeliveryRejected  ErrorCode = "REALTIME_DELIVERY_REJECTED"
	ErrCodeInvalidRequest            ErrorCode = "INVALID_REQUEST"
	ErrCodeDatabaseConnectionFailed  ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed      ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed      ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeSearchQueryFailed         ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeQueueUnavailable          ErrorCode = "QUEUE_UNAVAILABLE"
	ErrCodeExternalService           ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                   ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound          ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInternal                  ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewEventValidationError reports an event that does not satisfy the canonical schema.
func NewEventValidationError(details string) *StandardError {
	return newError(ErrCodeEventValidationFailed, "Notification event failed validation", details, false, nil)
}

// NewEventDecodeError reports a message body that is not decodable JSON.
func NewEventDecodeError(err error) *StandardError {
	return newError(ErrCodeEventDecodeFailed, "Notification event is not valid JSON", err.Error(), false, err)
}

func NewTemplateNotFoundError(details string) *StandardError {
	return newError(ErrCodeTemplateNotFound, "Template not found", details, false, nil)
}

func NewTemplateAlreadyExistsError(eventType, channel string) *StandardError {
	return newError(ErrCodeTemplateAlreadyExists, "Template already exists",
		fmt.Sprintf("Template already exists for event type '%s' and notification type '%s'", eventType, channel),
		false, nil)
}

func NewTemplateValidationFailedError(details string) *StandardError {
	return newError(ErrCodeTemplateValidationFailed, "Template validation failed", details, false, nil)
}

func NewPreferenceNotFoundError(userID string) *StandardError {
	return newError(ErrCodePreferenceNotFound, "User preferences not found", fmt.Sprintf("userId: %s", userID), false, nil)
}

func NewPreferenceAlreadyExistsError(userID string) *StandardError {
	return newError(ErrCodePreferenceAlreadyExists, "Preferences already exist for this user", fmt.Sprintf("userId: %s", userID), false, nil)
}

func NewNotificationNotFoundError(id string) *StandardError {
	return newError(ErrCodeNotificationNotFound, "Notification not found", fmt.Sprintf("notificationId: %s", id), false, nil)
}

func NewNotificationNotRetryableError(id, status string) *StandardError {
	return newError(ErrCodeNotificationNotRetryable, "Notification is not awaiting a retry",
		fmt.Sprintf("notificationId: %s, status: %s", id, status), false, nil)
}

// NewNotificationSendFailedError wraps a transport failure for one channel.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, fmt.Sprintf("Failed to send %s notification", channel), err.Error(), true, err)
}

func NewRecipientMissingError(channel, userID string) *StandardError {
	return newError(ErrCodeRecipientMissing, fmt.Sprintf("No %s recipient available", channel), fmt.Sprintf("userId: %s", userID), false, nil)
}

func NewPushTokenUnregisteredError(err error) *StandardError {
	return newError(ErrCodePushTokenUnregistered, "Push token is invalid or unregistered", err.Error(), false, err)
}

func NewSenderCircuitOpenError(sender string, err error) *StandardError {
	return newError(ErrCodeSenderCircuitOpen, fmt.Sprintf("Sender '%s' circuit is open", sender), err.Error(), true, err)
}

func NewRealtimeDeliveryRejectedError(userID string) *StandardError {
	return newError(ErrCodeRealtimeDeliveryRejected, "No realtime connection accepted the notification", fmt.Sprintf("userId: %s", userID), true, nil)
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, false, nil)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true, err)
}

func NewDatabaseInsertFailedError(entity string, err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, fmt.Sprintf("Failed to insert %s", entity), err.Error(), true, err)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed", err.Error(), true, err)
}

func NewQueueUnavailableError(err error) *StandardError {
	return newError(ErrCodeQueueUnavailable, "Message queue unavailable", err.Error(), true, err)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true, err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false, nil)
}

// NewInternalError wraps an error nobody classified.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), true, err)
}

// ==========================
// 3. Helpers
// ==========================

// AsStandardError finds the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// IsRetryableErrorCode reports whether a failure with this code may succeed when retried.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeNotificationSendFailed,
		ErrCodeSenderCircuitOpen,
		ErrCodeRealtimeDeliveryRejected,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeQueueUnavailable,
		ErrCodeExternalService,
		ErrCodeTimeout,
		ErrCodeInternal:
		return true
	default:
		return false
	}
}

// GetErrorCategory groups codes for logging and metric labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "EVENT"):
		return "EVENT"
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "PREFERENCE"):
		return "PREFERENCE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "PUSH") ||
		strings.Contains(codeStr, "SENDER") || strings.Contains(codeStr, "REALTIME") ||
		strings.Contains(codeStr, "RECIPIENT"):
		return "DELIVERY"
	case strings.Contains(codeStr, "QUEUE"):
		return "QUEUE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
