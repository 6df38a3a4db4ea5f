package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	level  string
	msg    string
	fields map[string]interface{}
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.level, l.msg, l.fields = "error", msg, fields
}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.level, l.msg, l.fields = "warn", msg, fields
}

// ==========================
// StandardError
// ==========================

func TestStandardError_Error(t *testing.T) {
	err := NewNotificationNotFoundError("abc")
	assert.Equal(t, "StandardError[NOTIFICATION_NOT_FOUND]: Notification not found: notificationId: abc", err.Error())

	bare := newError(ErrCodeInternal, "Unexpected error", "", true, nil)
	assert.Equal(t, "StandardError[INTERNAL_ERROR]: Unexpected error", bare.Error())
}

func TestConstructors_RetryableMatchesCode(t *testing.T) {
	cause := stderrors.New("boom")
	all := []*StandardError{
		NewEventValidationError("user_id: required"),
		NewEventDecodeError(cause),
		NewTemplateNotFoundError("id: x"),
		NewTemplateAlreadyExistsError("X", "email"),
		NewTemplateValidationFailedError("body_template: required"),
		NewPreferenceNotFoundError("u"),
		NewPreferenceAlreadyExistsError("u"),
		NewNotificationNotFoundError("n"),
		NewNotificationNotRetryableError("n", "sent"),
		NewNotificationSendFailedError("email", cause),
		NewRecipientMissingError("push", "u"),
		NewPushTokenUnregisteredError(cause),
		NewSenderCircuitOpenError("email", cause),
		NewRealtimeDeliveryRejectedError("u"),
		NewInvalidRequestError("bad"),
		NewDatabaseConnectionFailedError(cause),
		NewQueryExecutionFailedError("select", cause),
		NewDatabaseInsertFailedError("notification", cause),
		NewSearchQueryFailedError(cause),
		NewQueueUnavailableError(cause),
		NewExternalServiceError("sns", cause),
		NewTimeoutError("smtp", cause),
		NewResourceNotFoundError("search", "disabled"),
		NewInternalError(cause),
	}

	for _, e := range all {
		t.Run(string(e.Code), func(t *testing.T) {
			assert.Equal(t, IsRetryableErrorCode(e.Code), e.Retryable)
		})
	}
}

func TestAsStandardError_Wrapped(t *testing.T) {
	inner := NewPreferenceNotFoundError("u1")
	wrapped := fmt.Errorf("loading preferences: %w", inner)

	got, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.True(t, HasCode(wrapped, ErrCodePreferenceNotFound))
	assert.False(t, HasCode(wrapped, ErrCodeTemplateNotFound))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeInternal))
}

func TestUnwrap_ExposesCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := NewTimeoutError("smtp", cause)
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeEventDecodeFailed, "EVENT"},
		{ErrCodeTemplateAlreadyExists, "TEMPLATE"},
		{ErrCodePreferenceNotFound, "PREFERENCE"},
		{ErrCodeQueryExecutionFailed, "DATABASE"},
		{ErrCodeSearchQueryFailed, "SEARCH"},
		{ErrCodePushTokenUnregistered, "DELIVERY"},
		{ErrCodeSenderCircuitOpen, "DELIVERY"},
		{ErrCodeQueueUnavailable, "QUEUE"},
		{ErrCodeInvalidRequest, "VALIDATION"},
		{ErrCodeInternal, "OTHER"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}

// ==========================
// ErrorHandler
// ==========================

func TestHandleMessageError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantRequeue bool
		wantLevel   string
		wantCode    ErrorCode
	}{
		{
			name:        "schema violation is dropped",
			err:         NewEventValidationError("event_type: required"),
			wantRequeue: false,
			wantLevel:   "error",
			wantCode:    ErrCodeEventValidationFailed,
		},
		{
			name:        "database failure is requeued",
			err:         NewQueryExecutionFailedError("get preference", stderrors.New("conn reset")),
			wantRequeue: true,
			wantLevel:   "warn",
			wantCode:    ErrCodeQueryExecutionFailed,
		},
		{
			name:        "unknown error is requeued as internal",
			err:         stderrors.New("surprise"),
			wantRequeue: true,
			wantLevel:   "warn",
			wantCode:    ErrCodeInternal,
		},
		{
			name:        "cancellation becomes timeout",
			err:         fmt.Errorf("process: %w", context.Canceled),
			wantRequeue: true,
			wantLevel:   "warn",
			wantCode:    ErrCodeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &recordingLogger{}
			h := NewErrorHandler(log)

			requeue := h.HandleMessageError(context.Background(), tt.err, map[string]interface{}{"routingKey": "reservation.created"})

			assert.Equal(t, tt.wantRequeue, requeue)
			assert.Equal(t, tt.wantLevel, log.level)
			assert.Equal(t, string(tt.wantCode), log.fields["errorCode"])
			assert.Equal(t, "reservation.created", log.fields["routingKey"])
		})
	}
}
