package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel is the delivery medium of a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelPush
}

// Status is the lifecycle state of a notification.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSent     Status = "sent"
	StatusFailed   Status = "failed"
	StatusRetrying Status = "retrying"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusRetrying:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Provenance tags stored under DataKeySentVia once a notification is sent.
const (
	DataKeySentVia = "sent_via"
	SentViaSocket  = "websocket"
)

const DefaultMaxRetries = 3

// Notification is one outbound message instance.
type Notification struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Channel        Channel    `json:"notification_type"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	RecipientEmail *string    `json:"recipient_email,omitempty"`
	RecipientToken *string    `json:"recipient_fcm_token,omitempty"`
	Subject        *string    `json:"subject,omitempty"`
	Title          *string    `json:"title,omitempty"`
	Body           string     `json:"body"`
	Data           Data       `json:"data"`
	EventType      string     `json:"event_type"`
	RetryCount     int        `json:"retry_count"`
	MaxRetries     int        `json:"max_retries"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Recipient returns the address matching the channel.
func (n *Notification) Recipient() string {
	switch n.Channel {
	case ChannelEmail:
		if n.RecipientEmail != nil {
			return *n.RecipientEmail
		}
	case ChannelPush:
		if n.RecipientToken != nil {
			return *n.RecipientToken
		}
	}
	return ""
}

// NotificationTemplate is the content blueprint for one (event_type, channel) pair.
type NotificationTemplate struct {
	ID              uuid.UUID `json:"id"`
	EventType       string    `json:"event_type"`
	Channel         Channel   `json:"notification_type"`
	SubjectTemplate *string   `json:"subject_template,omitempty"`
	TitleTemplate   *string   `json:"title_template,omitempty"`
	BodyTemplate    string    `json:"body_template"`
	Priority        Priority  `json:"priority"`
	Active          bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EventPreferences maps event type to channel name to an explicit opt-in flag.
type EventPreferences map[string]map[string]bool

func (e EventPreferences) Value() (driver.Value, error) {
	if e == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e)
}

func (e *EventPreferences) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = EventPreferences{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into EventPreferences", src)
	}
	out := EventPreferences{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*e = out
	return nil
}

// UserNotificationPreference is a user's opt-in state. A missing record means "send everything".
type UserNotificationPreference struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"user_id"`
	PushToken        *string          `json:"fcm_token,omitempty"`
	EmailEnabled     bool             `json:"email_enabled"`
	PushEnabled      bool             `json:"push_enabled"`
	EventPreferences EventPreferences `json:"event_preferences"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Override returns the explicit per-event flag for a channel, if one exists.
func (p *UserNotificationPreference) Override(eventType string, channel Channel) (enabled bool, ok bool) {
	byChannel, ok := p.EventPreferences[eventType]
	if !ok {
		return false, false
	}
	enabled, ok = byChannel[string(channel)]
	return enabled, ok
}

// NotificationEvent is the canonical input of the dispatch pipeline.
type NotificationEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	UserEmail *string   `json:"user_email,omitempty"`
	PushToken *string   `json:"fcm_token,omitempty"`
	EventType string    `json:"event_type"`
	Data      Data      `json:"data"`
	Priority  Priority  `json:"priority"`
}
