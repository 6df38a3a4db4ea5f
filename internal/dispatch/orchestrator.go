package dispatch

import (
	"context"
	"time"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/metrics"
	"notification-dispatcher/internal/common/observability"
	"notification-dispatcher/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store is the persistence the orchestrator depends on. GetPreference
// returns nil, nil when the user has no preference record.
type Store interface {
	GetPreference(ctx context.Context, userID uuid.UUID) (*models.UserNotificationPreference, error)
	ActiveTemplates(ctx context.Context, eventType string) ([]*models.NotificationTemplate, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	UpdateNotificationStatus(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error)
}

// Indexer mirrors notification state into the search index.
type Indexer interface {
	IndexNotification(ctx context.Context, n *models.Notification) error
}

type Deliverer interface {
	Deliver(ctx context.Context, n *models.Notification) (string, error)
}

// Result summarizes one processed event.
type Result struct {
	Notifications       []*models.Notification
	SkippedByPreference int
	SkippedNoRecipient  int
}

func (r *Result) Sent() int {
	count := 0
	for _, n := range r.Notifications {
		if n.Status == models.StatusSent {
			count++
		}
	}
	return count
}

type Orchestrator struct {
	store   Store
	router  Deliverer
	retry   RetryPolicy
	config  Config
	logger  logger.Logger
	indexer Indexer
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Orchestrator)

func WithIndexer(idx Indexer) Option {
	return func(o *Orchestrator) { o.indexer = idx }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

func NewOrchestrator(store Store, router Deliverer, cfg Config, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  store,
		router: router,
		retry:  NewRetryPolicy(cfg.RetryDelay),
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		tracer: observability.Tracer("notification-dispatcher/dispatch"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process turns one event into zero or more notifications and attempts
// each of them once, in template order. Failures to read preferences or
// templates, or to create a record, are returned so the event can be
// redelivered; send failures are absorbed by the retry state machine.
func (o *Orchestrator) Process(ctx context.Context, event *models.NotificationEvent) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "dispatch.Process", trace.WithAttributes(
		attribute.String("event_type", event.EventType),
		attribute.String("user_id", event.UserID.String()),
	))
	defer span.End()

	result := &Result{}

	pref, err := o.store.GetPreference(ctx, event.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load preference")
		return result, err
	}

	templates, err := o.store.ActiveTemplates(ctx, event.EventType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load templates")
		return result, err
	}
	if len(templates) == 0 {
		o.logger.Info("no active templates for event", map[string]interface{}{
			"eventType": event.EventType,
		})
		return result, nil
	}

	for _, t := range templates {
		if !ShouldSend(pref, t, event.EventType) {
			o.logger.Info("skipping channel based on preferences", map[string]interface{}{
				"channel":   string(t.Channel),
				"userId":    event.UserID.String(),
				"eventType": event.EventType,
			})
			metrics.NotificationsSkipped.WithLabelValues(string(t.Channel), "preference").Inc()
			result.SkippedByPreference++
			continue
		}

		n, ok := o.buildNotification(event, pref, t)
		if !ok {
			o.logger.Warn("no recipient for channel", map[string]interface{}{
				"channel":   string(t.Channel),
				"userId":    event.UserID.String(),
				"eventType": event.EventType,
			})
			metrics.NotificationsSkipped.WithLabelValues(string(t.Channel), "no_recipient").Inc()
			result.SkippedNoRecipient++
			continue
		}

		if err := o.store.CreateNotification(ctx, n); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create notification")
			return result, err
		}
		o.index(ctx, n)
		result.Notifications = append(result.Notifications, n)
	}

	for _, n := range result.Notifications {
		o.send(ctx, n)
	}

	return result, nil
}

// Resend makes another attempt on a notification waiting in retrying status.
func (o *Orchestrator) Resend(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, err := o.store.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != models.StatusRetrying {
		return n, errors.NewNotificationNotRetryableError(id.String(), string(n.Status))
	}
	o.send(ctx, n)
	return n, nil
}

func (o *Orchestrator) buildNotification(event *models.NotificationEvent, pref *models.UserNotificationPreference, t *models.NotificationTemplate) (*models.Notification, bool) {
	rendered := Render(t, event.Data)
	now := o.now()

	priority := t.Priority
	if !priority.Valid() {
		priority = models.PriorityNormal
	}

	n := &models.Notification{
		ID:         uuid.New(),
		UserID:     event.UserID,
		Channel:    t.Channel,
		Status:     models.StatusPending,
		Priority:   priority,
		Body:       rendered.Body,
		Data:       event.Data.Clone(),
		EventType:  event.EventType,
		MaxRetries: o.config.MaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	switch t.Channel {
	case models.ChannelEmail:
		if event.UserEmail == nil || *event.UserEmail == "" {
			return nil, false
		}
		to := *event.UserEmail
		n.RecipientEmail = &to
		n.Subject = rendered.Subject
	case models.ChannelPush:
		token := pushToken(event, pref)
		if token == "" {
			return nil, false
		}
		n.RecipientToken = &token
		n.Title = rendered.Title
	default:
		return nil, false
	}
	return n, true
}

func pushToken(event *models.NotificationEvent, pref *models.UserNotificationPreference) string {
	if event.PushToken != nil && *event.PushToken != "" {
		return *event.PushToken
	}
	if pref != nil && pref.PushToken != nil {
		return *pref.PushToken
	}
	return ""
}

// send attempts one delivery and persists the outcome. A started attempt
// is not interrupted by the caller's cancellation; the router's send
// timeout bounds it instead.
func (o *Orchestrator) send(ctx context.Context, n *models.Notification) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := o.tracer.Start(ctx, "dispatch.deliver", trace.WithAttributes(
		attribute.String("notification_id", n.ID.String()),
		attribute.String("channel", string(n.Channel)),
	))
	defer span.End()

	fields := map[string]interface{}{
		"notificationId": n.ID.String(),
		"channel":        string(n.Channel),
		"userId":         n.UserID.String(),
	}

	via, err := o.router.Deliver(ctx, n)
	now := o.now()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		o.retry.Fail(n, err.Error(), now)

		fields["retryCount"] = n.RetryCount
		fields["maxRetries"] = n.MaxRetries
		log := o.logger.WithError(err)
		if n.Status == models.StatusRetrying {
			fields["nextRetryAt"] = n.NextRetryAt.Format(time.RFC3339)
			log.Warn("notification delivery failed, retry scheduled", fields)
		} else {
			log.Error("notification delivery failed permanently", fields)
		}
	} else {
		MarkSent(n, via, now)
		metrics.NotificationsSentVia.WithLabelValues(via).Inc()
		fields["via"] = via
		o.logger.Info("notification sent", fields)
	}
	metrics.NotificationsProcessed.WithLabelValues(string(n.Channel), string(n.Status)).Inc()

	if err := o.store.UpdateNotificationStatus(ctx, n); err != nil {
		o.logger.Error("failed to persist notification status", map[string]interface{}{
			"notificationId": n.ID.String(),
			"status":         string(n.Status),
			"error":          err.Error(),
		})
	}
	o.index(ctx, n)
}

func (o *Orchestrator) index(ctx context.Context, n *models.Notification) {
	if o.indexer == nil {
		return
	}
	if err := o.indexer.IndexNotification(ctx, n); err != nil {
		o.logger.Warn("failed to index notification", map[string]interface{}{
			"notificationId": n.ID.String(),
			"error":          err.Error(),
		})
	}
}
