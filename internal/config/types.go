// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// FileConfig represents the YAML configuration structure.
// Durations are Go duration strings (e.g. "5s").
type FileConfig struct {
	DataDir  string `yaml:"dataDir,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`

	API           APIConfig           `yaml:"api,omitempty"`
	Metrics       MetricsConfig       `yaml:"metrics,omitempty"`
	Media         MediaConfig         `yaml:"media,omitempty"`
	Player        PlayerConfig        `yaml:"player,omitempty"`
	Stream        StreamConfig        `yaml:"stream,omitempty"`
	Remote        RemoteConfig        `yaml:"remote,omitempty"`
	Launch        LaunchConfig        `yaml:"launch,omitempty"`
	State         StateConfig         `yaml:"state,omitempty"`
	Notifications NotificationsConfig `yaml:"notifications,omitempty"`
	Relay         RelayConfig         `yaml:"relay,omitempty"`
	Telemetry     TelemetryConfig     `yaml:"telemetry,omitempty"`
	Server        *ServerFileConfig   `yaml:"server,omitempty"`
}

// APIConfig holds command listener settings
type APIConfig struct {
	ListenAddr string           `yaml:"listenAddr,omitempty"`
	MaxConns   *int             `yaml:"maxConns,omitempty"`
	RateLimit  *RateLimitConfig `yaml:"rateLimit,omitempty"`
}

// RateLimitConfig holds ingress rate limiting settings
type RateLimitConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Requests *int   `yaml:"requests,omitempty"`
	Window   string `yaml:"window,omitempty"`
}

// MetricsConfig holds Prometheus listener settings
type MetricsConfig struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

// MediaConfig holds resolver settings
type MediaConfig struct {
	ExternalRoot string   `yaml:"externalRoot,omitempty"`
	Roots        []string `yaml:"roots,omitempty"`
	MaxDepth     *int     `yaml:"maxDepth,omitempty"`
}

// PlayerConfig holds player process settings
type PlayerConfig struct {
	Command    string   `yaml:"command,omitempty"`
	Args       []string `yaml:"args,omitempty"`
	DebugArgs  []string `yaml:"debugArgs,omitempty"`
	ReadyAfter string   `yaml:"readyAfter,omitempty"`
	Debug      *bool    `yaml:"debug,omitempty"`
}

// StreamConfig holds stream surface settings
type StreamConfig struct {
	MaxErrors          *int   `yaml:"maxErrors,omitempty"`
	SettleDelay        string `yaml:"settleDelay,omitempty"`
	CloseGrace         string `yaml:"closeGrace,omitempty"`
	StartTimeout       string `yaml:"startTimeout,omitempty"`
	AutoStartAnimation *bool  `yaml:"autoStartAnimation,omitempty"`
}

// RemoteConfig holds remote-view surface settings
type RemoteConfig struct {
	RTSPPort       *int   `yaml:"rtspPort,omitempty"`
	RTSPPath       string `yaml:"rtspPath,omitempty"`
	StatusPort     *int   `yaml:"statusPort,omitempty"`
	StatusPath     string `yaml:"statusPath,omitempty"`
	StatusInterval string `yaml:"statusInterval,omitempty"`
	StatusTimeout  string `yaml:"statusTimeout,omitempty"`
}

// LaunchConfig holds launch throttling settings
type LaunchConfig struct {
	PerRequesterRate *float64 `yaml:"perRequesterRate,omitempty"`
	Burst            *int     `yaml:"burst,omitempty"`
	BreakerThreshold *int     `yaml:"breakerThreshold,omitempty"`
	BreakerReset     string   `yaml:"breakerReset,omitempty"`
}

// StateConfig holds intent persistence settings
type StateConfig struct {
	Backend string `yaml:"backend,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// NotificationsConfig holds notification store settings
type NotificationsConfig struct {
	Path string `yaml:"path,omitempty"`
}

// RelayConfig holds Redis relay settings
type RelayConfig struct {
	RedisAddr     string `yaml:"redisAddr,omitempty"`
	RedisPassword string `yaml:"redisPassword,omitempty"`
	RedisDB       *int   `yaml:"redisDB,omitempty"`
	Channel       string `yaml:"channel,omitempty"`
}

// TelemetryConfig holds tracing settings
type TelemetryConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
	Environment  string   `yaml:"environment,omitempty"`
}

// ServerFileConfig holds HTTP server timeouts
type ServerFileConfig struct {
	ReadTimeout     string `yaml:"readTimeout,omitempty"`
	WriteTimeout    string `yaml:"writeTimeout,omitempty"`
	IdleTimeout     string `yaml:"idleTimeout,omitempty"`
	MaxHeaderBytes  *int   `yaml:"maxHeaderBytes,omitempty"`
	ShutdownTimeout string `yaml:"shutdownTimeout,omitempty"`
}
