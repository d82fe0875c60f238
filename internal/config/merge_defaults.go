// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"time"
)

const (
	defaultDataDir       = "/var/lib/backserv"
	defaultListenAddr    = ":8080"
	defaultMetricsAddr   = ":9090"
	defaultRelayChannel  = "backserv:signals"
	defaultPlayerCommand = "mpv"
)

// DefaultPlayerArgs are passed to the player for every surface.
var DefaultPlayerArgs = []string{"--fs", "--no-terminal"}

// DefaultPlayerDebugArgs are appended when debug mode is on.
var DefaultPlayerDebugArgs = []string{"--msg-level=all=v"}

// setDefaults fills cfg with built-in defaults. Paths derived from DataDir are
// resolved later in finalize so that file and ENV overrides of DataDir apply.
func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.DataDir = defaultDataDir
	cfg.LogLevel = "info"

	cfg.API = APISettings{
		ListenAddr:        defaultListenAddr,
		MaxConns:          64,
		RateLimitEnabled:  true,
		RateLimitRequests: 600,
		RateLimitWindow:   time.Minute,
	}
	cfg.Metrics = MetricsSettings{
		Enabled:    true,
		ListenAddr: defaultMetricsAddr,
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "/"
	}
	cfg.Media = MediaSettings{
		ExternalRoot: home,
		MaxDepth:     5,
	}

	cfg.Player = PlayerSettings{
		Command:    defaultPlayerCommand,
		Args:       append([]string(nil), DefaultPlayerArgs...),
		DebugArgs:  append([]string(nil), DefaultPlayerDebugArgs...),
		ReadyAfter: 2 * time.Second,
	}
	cfg.Stream = StreamSettings{
		MaxErrors:          3,
		SettleDelay:        time.Second,
		CloseGrace:         3 * time.Second,
		StartTimeout:       15 * time.Second,
		AutoStartAnimation: true,
	}
	cfg.Remote = RemoteSettings{
		RTSPPort:       8554,
		RTSPPath:       "/live/stream",
		StatusPort:     8080,
		StatusPath:     "/status",
		StatusInterval: 5 * time.Second,
		StatusTimeout:  3 * time.Second,
	}
	cfg.Launch = LaunchSettings{
		PerRequesterRate: 1,
		Burst:            5,
		BreakerThreshold: 3,
		BreakerReset:     30 * time.Second,
	}
	cfg.State = StateSettings{Backend: StateBackendBadger}
	cfg.Relay = RelaySettings{Channel: defaultRelayChannel}
	cfg.Telemetry = TelemetrySettings{
		Exporter:     ExporterGRPC,
		Endpoint:     "localhost:4317",
		SamplingRate: 1.0,
		Environment:  "production",
	}
}
