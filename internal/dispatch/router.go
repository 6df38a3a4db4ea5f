package dispatch

import (
	"context"
	"fmt"
	"time"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/metrics"
	"notification-dispatcher/internal/delivery/email"
	"notification-dispatcher/internal/models"

	"github.com/google/uuid"
)

// Presence is the view of the realtime registry the router needs.
type Presence interface {
	IsUserConnected(userID uuid.UUID) bool
	SendRealtime(ctx context.Context, userID uuid.UUID, payload interface{}) bool
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// RealtimePayload is the message pushed over an open realtime connection.
type RealtimePayload struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	EventType string      `json:"event_type"`
	Title     *string     `json:"title"`
	Body      string      `json:"body"`
	Data      models.Data `json:"data"`
	CreatedAt string      `json:"created_at"`
	Priority  string      `json:"priority"`
}

func NewRealtimePayload(n *models.Notification) RealtimePayload {
	return RealtimePayload{
		ID:        n.ID.String(),
		Type:      string(n.Channel),
		EventType: n.EventType,
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.Data,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339Nano),
		Priority:  string(n.Priority),
	}
}

// Router picks the transport for a notification and performs one attempt.
type Router struct {
	presence    Presence
	email       EmailSender
	push        PushSender
	sendTimeout time.Duration
	logger      logger.Logger
}

func NewRouter(presence Presence, emailSender EmailSender, pushSender PushSender, sendTimeout time.Duration, log logger.Logger) *Router {
	if sendTimeout <= 0 {
		sendTimeout = DefaultConfig().SendTimeout
	}
	return &Router{
		presence:    presence,
		email:       emailSender,
		push:        pushSender,
		sendTimeout: sendTimeout,
		logger:      log.WithFields(map[string]interface{}{"component": "router"}),
	}
}

// Deliver makes a single delivery attempt and returns the transport used.
func (r *Router) Deliver(ctx context.Context, n *models.Notification) (string, error) {
	start := time.Now()
	defer func() {
		metrics.SendDuration.WithLabelValues(string(n.Channel)).Observe(time.Since(start).Seconds())
	}()

	switch n.Channel {
	case models.ChannelPush:
		return r.deliverPush(ctx, n)
	case models.ChannelEmail:
		return r.deliverEmail(ctx, n)
	default:
		return "", fmt.Errorf("unsupported channel %q", n.Channel)
	}
}

func (r *Router) deliverPush(ctx context.Context, n *models.Notification) (string, error) {
	if r.presence != nil && r.presence.IsUserConnected(n.UserID) {
		sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
		accepted := r.presence.SendRealtime(sendCtx, n.UserID, NewRealtimePayload(n))
		cancel()
		if accepted {
			r.logger.Info("notification sent over realtime connection", map[string]interface{}{
				"notificationId": n.ID.String(),
				"userId":         n.UserID.String(),
			})
			return models.SentViaSocket, nil
		}
		r.logger.Debug("realtime delivery rejected, falling back to push", map[string]interface{}{
			"notificationId": n.ID.String(),
		})
	}

	token := n.Recipient()
	if token == "" {
		return "", errors.NewRecipientMissingError(string(n.Channel), n.UserID.String())
	}
	if r.push == nil {
		return "", fmt.Errorf("push sender not configured")
	}

	title := ""
	if n.Title != nil {
		title = *n.Title
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	if err := r.push.Send(sendCtx, token, title, n.Body, n.Data.StringMap()); err != nil {
		return "", err
	}
	return string(models.ChannelPush), nil
}

func (r *Router) deliverEmail(ctx context.Context, n *models.Notification) (string, error) {
	to := n.Recipient()
	if to == "" {
		return "", errors.NewRecipientMissingError(string(n.Channel), n.UserID.String())
	}
	if r.email == nil {
		return "", fmt.Errorf("email sender not configured")
	}

	subject := ""
	if n.Subject != nil {
		subject = *n.Subject
	}
	html, err := email.RenderHTML(subject, n.Body, n.Data)
	if err != nil {
		return "", err
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	if err := r.email.Send(sendCtx, to, subject, html); err != nil {
		return "", err
	}
	return string(models.ChannelEmail), nil
}
