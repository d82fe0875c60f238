// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_commands_total",
		Help: "Decoded commands by kind and outcome",
	}, []string{"command", "outcome"}) // outcome=accepted|rejected|failed

	mediaVideosAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backserv_media_videos_available",
		Help: "Number of distinct videos found by the last listing",
	})

	mediaResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_media_resolve_total",
		Help: "Video name resolutions by outcome",
	}, []string{"outcome"}) // outcome=found|not_found|error

	mediaScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "backserv_media_scan_duration_seconds",
		Help:    "Duration of a full media listing",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	intentChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_intent_changes_total",
		Help: "Animation intent updates by field",
	}, []string{"field"}) // field=video|volume|clear

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_notifications_total",
		Help: "Fallback notifications by action",
	}, []string{"action"}) // action=posted|launched|dismissed

	sessionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_session_transitions_total",
		Help: "Session controller state transitions",
	}, []string{"from", "to"})

	configValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backserv_config_validation_errors_total",
		Help: "Total number of configuration validation errors",
	})
)

// RecordCommand counts a decoded command and what happened to it.
func RecordCommand(command, outcome string) {
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

// SetVideosAvailable records the size of the last listing.
func SetVideosAvailable(n int) {
	mediaVideosAvailable.Set(float64(n))
}

// RecordResolve counts a resolve outcome.
func RecordResolve(outcome string) {
	mediaResolveTotal.WithLabelValues(outcome).Inc()
}

// ObserveScanDuration records a listing duration in seconds.
func ObserveScanDuration(seconds float64) {
	mediaScanDuration.Observe(seconds)
}

// RecordIntentChange counts an intent update.
func RecordIntentChange(field string) {
	intentChangesTotal.WithLabelValues(field).Inc()
}

// RecordNotification counts a notification action.
func RecordNotification(action string) {
	notificationsTotal.WithLabelValues(action).Inc()
}

// RecordSessionTransition counts a controller state change.
func RecordSessionTransition(from, to string) {
	sessionTransitionsTotal.WithLabelValues(from, to).Inc()
}

// IncConfigValidationError counts a rejected configuration.
func IncConfigValidationError() {
	configValidationErrors.Inc()
}
