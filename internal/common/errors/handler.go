package errors

import (
	"context"
	stderrors "errors"
)

// Logger is the subset of logger.Logger the handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// ErrorHandler classifies processing failures and logs them uniformly.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleMessageError logs err and reports whether the triggering message
// should be redelivered. Only non-retryable StandardErrors are dropped.
func (h *ErrorHandler) HandleMessageError(ctx context.Context, err error, fields map[string]interface{}) (requeue bool) {
	stdErr := h.Normalize(ctx, err)

	logFields := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	for k, v := range fields {
		logFields[k] = v
	}

	if stdErr.Retryable {
		h.logger.Warn("message processing failed, requeueing", logFields)
	} else {
		h.logger.Error("message rejected", logFields)
	}
	return stdErr.Retryable
}

// Normalize ensures we always have a StandardError. Context cancellation
// and deadline errors become retryable timeouts; anything unknown is an
// INTERNAL_ERROR, which is retryable.
func (h *ErrorHandler) Normalize(_ context.Context, err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return NewTimeoutError("processing", err)
	}
	return NewInternalError(err)
}
