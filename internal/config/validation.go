// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/Mokrovi/backServ/internal/validate"
)

// Validate validates the complete configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("DataDir", cfg.DataDir)
	v.LogLevel("LogLevel", cfg.LogLevel)

	v.ListenAddr("API.ListenAddr", cfg.API.ListenAddr, false)
	v.Positive("API.MaxConns", cfg.API.MaxConns)
	if cfg.API.RateLimitEnabled {
		v.Positive("API.RateLimitRequests", cfg.API.RateLimitRequests)
		v.DurationRange("API.RateLimitWindow", cfg.API.RateLimitWindow, time.Second, time.Hour)
	}
	if cfg.Metrics.Enabled {
		v.ListenAddr("Metrics.ListenAddr", cfg.Metrics.ListenAddr, false)
	}

	if len(cfg.Media.Roots) == 0 {
		v.NotEmpty("Media.ExternalRoot", cfg.Media.ExternalRoot)
	}
	v.Range("Media.MaxDepth", cfg.Media.MaxDepth, 0, 32)

	v.NotEmpty("Player.Command", cfg.Player.Command)
	v.DurationRange("Player.ReadyAfter", cfg.Player.ReadyAfter, 0, time.Minute)

	v.Range("Stream.MaxErrors", cfg.Stream.MaxErrors, 1, 100)
	v.DurationRange("Stream.SettleDelay", cfg.Stream.SettleDelay, 0, time.Minute)
	v.DurationRange("Stream.CloseGrace", cfg.Stream.CloseGrace, 0, time.Minute)
	v.DurationRange("Stream.StartTimeout", cfg.Stream.StartTimeout, time.Second, 10*time.Minute)

	v.Port("Remote.RTSPPort", cfg.Remote.RTSPPort)
	v.URLPath("Remote.RTSPPath", cfg.Remote.RTSPPath)
	v.Port("Remote.StatusPort", cfg.Remote.StatusPort)
	v.URLPath("Remote.StatusPath", cfg.Remote.StatusPath)
	v.DurationRange("Remote.StatusInterval", cfg.Remote.StatusInterval, 100*time.Millisecond, time.Hour)
	v.DurationRange("Remote.StatusTimeout", cfg.Remote.StatusTimeout, 100*time.Millisecond, time.Minute)

	v.FloatRange("Launch.PerRequesterRate", cfg.Launch.PerRequesterRate, 0.01, 1000)
	v.Positive("Launch.Burst", cfg.Launch.Burst)
	v.Positive("Launch.BreakerThreshold", cfg.Launch.BreakerThreshold)

	v.OneOf("State.Backend", cfg.State.Backend, []string{StateBackendBadger, StateBackendMemory})
	if cfg.State.Backend == StateBackendBadger {
		v.NotEmpty("State.Path", cfg.State.Path)
	}
	v.NotEmpty("Notifications.Path", cfg.Notifications.Path)

	if cfg.Relay.Enabled() {
		v.NotEmpty("Relay.Channel", cfg.Relay.Channel)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{ExporterGRPC, ExporterHTTP})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
