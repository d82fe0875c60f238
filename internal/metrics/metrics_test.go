// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mokrovi/backServ/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestIncBusDropReason_DefaultsLabels(t *testing.T) {
	before := counterValue(t, metrics.BusDroppedTotal.WithLabelValues("unknown", "unknown"))
	metrics.IncBusDropReason("", "")
	after := counterValue(t, metrics.BusDroppedTotal.WithLabelValues("unknown", "unknown"))
	assert.Equal(t, before+1, after)
}

func TestPromhttpExposure(t *testing.T) {
	metrics.SetSurfaceActive("stream", true)
	metrics.RecordSurfaceLaunch("stream", "started")
	metrics.RecordCommand("stream", "accepted")
	metrics.SetCircuitBreakerState("player", "closed")

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	for _, name := range []string{
		`backserv_surface_active{surface="stream"} 1`,
		"backserv_surface_launches_total",
		"backserv_commands_total",
		`backserv_circuit_breaker_state{component="player",state="closed"} 1`,
	} {
		assert.Contains(t, string(body), name)
	}
}
