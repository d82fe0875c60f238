// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	surfaceActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backserv_surface_active",
		Help: "Whether a surface of the given kind is currently shown (1) or not (0)",
	}, []string{"surface"}) // surface=stream|remote

	surfaceLaunchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_surface_launches_total",
		Help: "Surface launch attempts by kind and outcome",
	}, []string{"surface", "outcome"}) // outcome=started|busy|throttled|unavailable|error

	surfaceClosesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_surface_closes_total",
		Help: "Surface teardowns by kind and reason",
	}, []string{"surface", "reason"})

	streamFailoversTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backserv_stream_failovers_total",
		Help: "Total number of switches from the primary to the fallback source",
	})

	streamRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backserv_stream_retries_total",
		Help: "Total number of retries on the same source after a playback error",
	})

	streamTerminalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_stream_terminal_total",
		Help: "Playback sessions that ended without recovery by reason",
	}, []string{"reason"}) // reason=no_source|max_errors

	playerEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_player_events_total",
		Help: "Player lifecycle events by role and event",
	}, []string{"role", "event"})

	remoteStatusPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_remote_status_polls_total",
		Help: "Remote status polls by outcome",
	}, []string{"outcome"}) // outcome=streaming|stopped|error
)

// SetSurfaceActive records whether a surface of the given kind is shown.
func SetSurfaceActive(surface string, active bool) {
	v := 0.0
	if active {
		v = 1.0
	}
	surfaceActive.WithLabelValues(surface).Set(v)
}

// RecordSurfaceLaunch records a launch attempt.
func RecordSurfaceLaunch(surface, outcome string) {
	surfaceLaunchesTotal.WithLabelValues(surface, outcome).Inc()
}

// RecordSurfaceClose records a teardown.
func RecordSurfaceClose(surface, reason string) {
	surfaceClosesTotal.WithLabelValues(surface, reason).Inc()
}

// IncStreamFailover counts a primary to fallback switch.
func IncStreamFailover() { streamFailoversTotal.Inc() }

// IncStreamRetry counts a retry on the same source.
func IncStreamRetry() { streamRetriesTotal.Inc() }

// RecordStreamTerminal counts an unrecoverable playback session.
func RecordStreamTerminal(reason string) {
	streamTerminalTotal.WithLabelValues(reason).Inc()
}

// RecordPlayerEvent counts a player event for a player role (stream, animation, remote).
func RecordPlayerEvent(role, event string) {
	playerEventsTotal.WithLabelValues(role, event).Inc()
}

// RecordRemoteStatusPoll counts a status poll result.
func RecordRemoteStatusPoll(outcome string) {
	remoteStatusPollsTotal.WithLabelValues(outcome).Inc()
}
