package dispatch

import (
	"testing"

	"notification-dispatcher/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestShouldSend(t *testing.T) {
	email := &models.NotificationTemplate{Channel: models.ChannelEmail}
	push := &models.NotificationTemplate{Channel: models.ChannelPush}

	tests := []struct {
		name string
		pref *models.UserNotificationPreference
		tmpl *models.NotificationTemplate
		want bool
	}{
		{"no preferences", nil, email, true},
		{
			name: "email globally disabled",
			pref: &models.UserNotificationPreference{EmailEnabled: false, PushEnabled: true},
			tmpl: email,
			want: false,
		},
		{
			name: "push globally disabled",
			pref: &models.UserNotificationPreference{EmailEnabled: true, PushEnabled: false},
			tmpl: push,
			want: false,
		},
		{
			name: "both enabled",
			pref: &models.UserNotificationPreference{EmailEnabled: true, PushEnabled: true},
			tmpl: push,
			want: true,
		},
		{
			name: "override disables",
			pref: &models.UserNotificationPreference{
				EmailEnabled:     true,
				PushEnabled:      true,
				EventPreferences: models.EventPreferences{"RESERVATION_CONFIRMED": {"email": false}},
			},
			tmpl: email,
			want: false,
		},
		{
			name: "override re-enables disabled channel",
			pref: &models.UserNotificationPreference{
				EmailEnabled:     true,
				PushEnabled:      false,
				EventPreferences: models.EventPreferences{"RESERVATION_CONFIRMED": {"push": true}},
			},
			tmpl: push,
			want: true,
		},
		{
			name: "override for another channel ignored",
			pref: &models.UserNotificationPreference{
				EmailEnabled:     false,
				PushEnabled:      true,
				EventPreferences: models.EventPreferences{"RESERVATION_CONFIRMED": {"push": true}},
			},
			tmpl: email,
			want: false,
		},
		{
			name: "override for another event ignored",
			pref: &models.UserNotificationPreference{
				EmailEnabled:     true,
				PushEnabled:      true,
				EventPreferences: models.EventPreferences{"PAYMENT_FAILED": {"email": false}},
			},
			tmpl: email,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldSend(tt.pref, tt.tmpl, "RESERVATION_CONFIRMED"))
		})
	}
}
