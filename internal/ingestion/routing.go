package ingestion

import "strings"

type route struct {
	key       string
	eventType string
}

// routes is ordered so queue bindings are declared deterministically.
var routes = []route{
	{"email.verification", "EMAIL_VERIFICATION"},
	{"email.welcome", "EMAIL_WELCOME"},
	{"email.password_reset", "EMAIL_PASSWORD_RESET"},
	{"email.password_changed", "EMAIL_PASSWORD_CHANGED"},
	{"reservation.created", "RESERVATION_CREATED"},
	{"reservation.confirmed", "RESERVATION_CONFIRMED"},
	{"reservation.cancelled", "RESERVATION_CANCELLED"},
	{"reservation.reminder", "RESERVATION_REMINDER"},
	{"payment.success", "PAYMENT_SUCCESS"},
	{"payment.failed", "PAYMENT_FAILED"},
	{"parking.spot.released", "SPOT_RELEASED"},
}

var routeIndex = func() map[string]string {
	m := make(map[string]string, len(routes))
	for _, r := range routes {
		m[r.key] = r.eventType
	}
	return m
}()

// EventTypeForRoutingKey maps a routing key to its event type. Keys outside
// the table are upper-cased with dots turned into underscores.
func EventTypeForRoutingKey(key string) string {
	if et, ok := routeIndex[key]; ok {
		return et
	}
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// RoutingKeys lists every key the queue should be bound to.
func RoutingKeys() []string {
	out := make([]string, len(routes))
	for i, r := range routes {
		out[i] = r.key
	}
	return out
}

func isAuthRoutingKey(key string) bool {
	return strings.HasPrefix(key, "email.")
}
