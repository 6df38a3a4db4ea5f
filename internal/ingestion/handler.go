package ingestion

import (
	"context"
	"fmt"
	"time"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/metrics"
	"notification-dispatcher/internal/common/observability"
	"notification-dispatcher/internal/common/queue"
	"notification-dispatcher/internal/dispatch"
	"notification-dispatcher/internal/models"
)

// Processor runs the dispatch pipeline for one canonical event.
type Processor interface {
	Process(ctx context.Context, event *models.NotificationEvent) (*dispatch.Result, error)
}

// Handler adapts queue deliveries to the dispatch pipeline.
type Handler struct {
	normalizer   *Normalizer
	processor    Processor
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(normalizer *Normalizer, processor Processor, obs *observability.Observability, log logger.Logger) *Handler {
	if obs == nil {
		obs = observability.Noop()
	}
	return &Handler{
		normalizer:   normalizer,
		processor:    processor,
		errorHandler: errors.NewErrorHandler(log),
		obs:          obs,
		logger:       log.With(map[string]interface{}{"component": "ingestion"}),
	}
}

var _ queue.Handler = (*Handler)(nil)

// Handle acks processed events, rejects malformed ones and requeues on
// anything unexpected.
func (h *Handler) Handle(ctx context.Context, routingKey string, body []byte) queue.Disposition {
	start := time.Now()
	eventType := EventTypeForRoutingKey(routingKey)

	result, err := h.execute(ctx, routingKey, body)

	disposition := queue.Ack
	if err != nil {
		disposition = queue.Reject
		if h.errorHandler.HandleMessageError(ctx, err, map[string]interface{}{
			"routingKey": routingKey,
			"eventType":  eventType,
		}) {
			disposition = queue.Requeue
		}
	} else {
		h.logger.Info("event processed", map[string]interface{}{
			"routingKey":          routingKey,
			"eventType":           eventType,
			"notifications":       len(result.Notifications),
			"sent":                result.Sent(),
			"skippedByPreference": result.SkippedByPreference,
			"skippedNoRecipient":  result.SkippedNoRecipient,
		})
	}

	outcome := disposition.String()
	metrics.EventsConsumed.WithLabelValues(eventType, outcome).Inc()
	h.obs.RecordEventProcessed(ctx, eventType, outcome)
	h.obs.RecordEventDuration(ctx, time.Since(start), outcome)
	return disposition
}

func (h *Handler) execute(ctx context.Context, routingKey string, body []byte) (result *dispatch.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.NewInternalError(fmt.Errorf("panic: %v", r))
		}
	}()

	event, err := h.normalizer.Normalize(routingKey, body)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("event received", map[string]interface{}{
		"routingKey": routingKey,
		"eventType":  event.EventType,
		"userId":     event.UserID.String(),
	})

	return h.processor.Process(ctx, event)
}
