package routes

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"health", HealthCheckURL(), "/health"},
		{"list", GetNotificationsURL(nil), "/api/v1/notifications"},
		{"list with query", GetNotificationsURL(url.Values{"page": {"2"}, "status": {"failed"}}), "/api/v1/notifications?page=2&status=failed"},
		{"recipient", GetRecipientNotificationsURL("user-1", nil), "/api/v1/notifications/recipient/user-1"},
		{"latest", GetLatestNotificationURL("user-1"), "/api/v1/notifications/recipient/user-1/latest"},
		{"get", GetNotificationURL("abc"), "/api/v1/notifications/abc"},
		{"create", CreateNotificationURL(), "/api/v1/notifications"},
		{"email", CreateEmailNotificationURL(), "/api/v1/notifications/email"},
		{"sms", CreateSMSNotificationURL(), "/api/v1/notifications/sms"},
		{"push", CreatePushNotificationURL(), "/api/v1/notifications/push"},
		{"stats", GetRecipientNotificationStatsURL("user-1", url.Values{"channel": {"email"}}), "/api/v1/stats/user-1?channel=email"},
		{"get preference", GetPreferenceURL("user-1"), "/api/v1/preferences/user-1"},
		{"init preference", InitPreferenceURL(), "/api/v1/preferences/init"},
		{"put preference", UpdatePreferenceURL("user-1"), "/api/v1/preferences/user-1"},
		{"delete preference", DeletePreferenceURL("user-1"), "/api/v1/preferences/user-1"},
		{"escaped recipient", GetPreferenceURL("a b"), "/api/v1/preferences/a%20b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestBuildURLUnknownRoute(t *testing.T) {
	assert.Empty(t, BuildURL("NoSuchRoute", nil, nil))
}
