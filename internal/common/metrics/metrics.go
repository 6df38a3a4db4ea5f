// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_events_consumed_total",
			Help: "Total number of queue events consumed, by outcome",
		},
		[]string{"event_type", "outcome"},
	)

	NotificationsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_processed_total",
			Help: "Total number of notifications by channel and final status",
		},
		[]string{"channel", "status"},
	)

	NotificationsSentVia = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_via_total",
			Help: "Total number of sent notifications by transport",
		},
		[]string{"via"},
	)

	NotificationsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_skipped_total",
			Help: "Total number of channel deliveries skipped before a record was created",
		},
		[]string{"channel", "reason"},
	)

	SendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_send_duration_seconds",
			Help:    "Duration of a single transport send in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections_active",
			Help: "Number of open realtime connections",
		},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sender_circuit_breaker_state",
			Help: "Circuit breaker state per sender (0 closed, 1 half-open, 2 open)",
		},
		[]string{"sender"},
	)
)
