// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_bus_published_total",
		Help: "Total number of signals published on the in-process bus by kind",
	}, []string{"kind"})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_bus_dropped_total",
		Help: "Total number of signal drops by kind and reason",
	}, []string{"kind", "reason"})

	RelayMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backserv_relay_messages_total",
		Help: "Signals mirrored through the Redis relay by direction and outcome",
	}, []string{"direction", "outcome"}) // direction=out|in outcome=ok|error|skipped
)

// IncBusPublished records a delivered publish for the given signal kind.
func IncBusPublished(kind string) {
	BusPublishedTotal.WithLabelValues(kind).Inc()
}

// IncBusDropReason records a dropped signal with a concrete reason.
func IncBusDropReason(kind, reason string) {
	if kind == "" {
		kind = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(kind, reason).Inc()
}

// IncRelayMessage records one relay transfer.
func IncRelayMessage(direction, outcome string) {
	RelayMessagesTotal.WithLabelValues(direction, outcome).Inc()
}
