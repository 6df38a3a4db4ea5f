package dispatch

import "notification-dispatcher/internal/models"

// ShouldSend decides whether a template may produce a notification for the
// user. An explicit per-event flag beats the global channel switches.
func ShouldSend(pref *models.UserNotificationPreference, t *models.NotificationTemplate, eventType string) bool {
	if pref == nil {
		return true
	}

	if enabled, ok := pref.Override(eventType, t.Channel); ok {
		return enabled
	}

	switch t.Channel {
	case models.ChannelEmail:
		return pref.EmailEnabled
	case models.ChannelPush:
		return pref.PushEnabled
	}
	return true
}
