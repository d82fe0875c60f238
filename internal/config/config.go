// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"net"
	"path/filepath"
	"strconv"
	"time"
)

// State backends.
const (
	StateBackendBadger = "badger"
	StateBackendMemory = "memory"
)

// Telemetry exporters.
const (
	ExporterGRPC = "grpc"
	ExporterHTTP = "http"
)

// AppConfig is the effective runtime configuration after defaults, file and
// environment have been merged.
type AppConfig struct {
	Version  string
	DataDir  string
	LogLevel string

	API           APISettings
	Metrics       MetricsSettings
	Media         MediaSettings
	Player        PlayerSettings
	Stream        StreamSettings
	Remote        RemoteSettings
	Launch        LaunchSettings
	State         StateSettings
	Notifications NotificationSettings
	Relay         RelaySettings
	Telemetry     TelemetrySettings
	Server        ServerSettings
}

// APISettings configures the command listener.
type APISettings struct {
	ListenAddr        string
	MaxConns          int
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// MetricsSettings configures the Prometheus listener.
type MetricsSettings struct {
	Enabled    bool
	ListenAddr string
}

// MediaSettings configures the video resolver.
type MediaSettings struct {
	ExternalRoot string
	// Roots overrides the derived search roots when non-empty.
	Roots    []string
	MaxDepth int
}

// SearchRoots returns the ordered directories the resolver walks. When no
// explicit roots are configured they are derived from ExternalRoot.
func (m MediaSettings) SearchRoots() []string {
	if len(m.Roots) > 0 {
		out := make([]string, len(m.Roots))
		copy(out, m.Roots)
		return out
	}
	if m.ExternalRoot == "" {
		return nil
	}
	return []string{
		filepath.Join(m.ExternalRoot, "Movies"),
		filepath.Join(m.ExternalRoot, "DCIM"),
		filepath.Join(m.ExternalRoot, "Download"),
		filepath.Join(m.ExternalRoot, "Pictures"),
		m.ExternalRoot,
	}
}

// PlayerSettings configures the external media player process.
type PlayerSettings struct {
	Command    string
	Args       []string
	DebugArgs  []string
	ReadyAfter time.Duration
	Debug      bool
}

// StreamSettings configures the stream surface and its fallback session.
type StreamSettings struct {
	MaxErrors          int
	SettleDelay        time.Duration
	CloseGrace         time.Duration
	StartTimeout       time.Duration
	AutoStartAnimation bool
}

// RemoteSettings configures the remote-view surface.
type RemoteSettings struct {
	RTSPPort       int
	RTSPPath       string
	StatusPort     int
	StatusPath     string
	StatusInterval time.Duration
	StatusTimeout  time.Duration
}

// StreamURL builds the RTSP address for a requester.
func (r RemoteSettings) StreamURL(host string) string {
	return "rtsp://" + net.JoinHostPort(host, strconv.Itoa(r.RTSPPort)) + r.RTSPPath
}

// StatusURL builds the status poll address for a requester.
func (r RemoteSettings) StatusURL(host string) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(r.StatusPort)) + r.StatusPath
}

// LaunchSettings throttles surface launches.
type LaunchSettings struct {
	PerRequesterRate float64
	Burst            int
	BreakerThreshold int
	BreakerReset     time.Duration
}

// StateSettings selects where the animation intent is persisted.
type StateSettings struct {
	Backend string
	Path    string
}

// NotificationSettings configures the fallback notification store.
type NotificationSettings struct {
	Path string
}

// RelaySettings configures the optional Redis signal relay.
type RelaySettings struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Channel       string
}

// Enabled reports whether a Redis address was configured.
func (r RelaySettings) Enabled() bool { return r.RedisAddr != "" }

// TelemetrySettings configures OpenTelemetry tracing.
type TelemetrySettings struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
	Environment  string
}

// ServerSettings holds HTTP server timeouts. Zero values fall back to the
// defaults in ParseServerConfigForApp.
type ServerSettings struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}
