// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// ENV keys. All of them override the file.
const (
	EnvDataDir          = "BACKSERV_DATA"
	EnvLogLevel         = "BACKSERV_LOG_LEVEL"
	EnvListen           = "BACKSERV_LISTEN"
	EnvMaxConns         = "BACKSERV_MAX_CONNS"
	EnvRateLimitEnabled = "BACKSERV_RATELIMIT_ENABLED"
	EnvRateLimitReqs    = "BACKSERV_RATELIMIT_REQUESTS"
	EnvRateLimitWindow  = "BACKSERV_RATELIMIT_WINDOW"
	EnvMetricsEnabled   = "BACKSERV_METRICS_ENABLED"
	EnvMetricsListen    = "BACKSERV_METRICS_LISTEN"
	EnvMediaRoot        = "BACKSERV_MEDIA_ROOT"
	EnvMediaRoots       = "BACKSERV_MEDIA_ROOTS"
	EnvMediaMaxDepth    = "BACKSERV_MEDIA_MAX_DEPTH"
	EnvPlayerCommand    = "BACKSERV_PLAYER_COMMAND"
	EnvPlayerArgs       = "BACKSERV_PLAYER_ARGS"
	EnvPlayerReadyAfter = "BACKSERV_PLAYER_READY_AFTER"
	EnvDebug            = "BACKSERV_DEBUG"
	EnvStreamMaxErrors  = "BACKSERV_STREAM_MAX_ERRORS"
	EnvStreamSettle     = "BACKSERV_STREAM_SETTLE_DELAY"
	EnvStreamGrace      = "BACKSERV_STREAM_CLOSE_GRACE"
	EnvStreamStart      = "BACKSERV_STREAM_START_TIMEOUT"
	EnvAutoStart        = "BACKSERV_AUTOSTART_ANIMATION"
	EnvRTSPPort         = "BACKSERV_REMOTE_RTSP_PORT"
	EnvRTSPPath         = "BACKSERV_REMOTE_RTSP_PATH"
	EnvStatusPort       = "BACKSERV_REMOTE_STATUS_PORT"
	EnvStatusPath       = "BACKSERV_REMOTE_STATUS_PATH"
	EnvStatusInterval   = "BACKSERV_REMOTE_STATUS_INTERVAL"
	EnvLaunchRate       = "BACKSERV_LAUNCH_RATE"
	EnvLaunchBurst      = "BACKSERV_LAUNCH_BURST"
	EnvStateBackend     = "BACKSERV_STATE_BACKEND"
	EnvStatePath        = "BACKSERV_STATE_PATH"
	EnvNotificationsDB  = "BACKSERV_NOTIFICATIONS_DB"
	EnvRedisAddr        = "BACKSERV_REDIS_ADDR"
	EnvRedisPassword    = "BACKSERV_REDIS_PASSWORD"
	EnvRedisChannel     = "BACKSERV_REDIS_CHANNEL"
	EnvOTelEnabled      = "BACKSERV_OTEL_ENABLED"
	EnvOTelExporter     = "BACKSERV_OTEL_EXPORTER"
	EnvOTelEndpoint     = "BACKSERV_OTEL_ENDPOINT"
	EnvOTelSampling     = "BACKSERV_OTEL_SAMPLING_RATE"
)

// mergeEnvConfig applies BACKSERV_* overrides. Every key is read through the
// Parse* helpers so the source of each effective value is logged.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.API.ListenAddr = l.envString(EnvListen, cfg.API.ListenAddr)
	cfg.API.MaxConns = l.envInt(EnvMaxConns, cfg.API.MaxConns)
	cfg.API.RateLimitEnabled = l.envBool(EnvRateLimitEnabled, cfg.API.RateLimitEnabled)
	cfg.API.RateLimitRequests = l.envInt(EnvRateLimitReqs, cfg.API.RateLimitRequests)
	cfg.API.RateLimitWindow = l.envDuration(EnvRateLimitWindow, cfg.API.RateLimitWindow)

	cfg.Metrics.Enabled = l.envBool(EnvMetricsEnabled, cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = l.envString(EnvMetricsListen, cfg.Metrics.ListenAddr)

	cfg.Media.ExternalRoot = l.envString(EnvMediaRoot, cfg.Media.ExternalRoot)
	if v, ok := l.envLookup(EnvMediaRoots); ok && v != "" {
		cfg.Media.Roots = splitCSV(v)
	}
	cfg.Media.MaxDepth = l.envInt(EnvMediaMaxDepth, cfg.Media.MaxDepth)

	cfg.Player.Command = l.envString(EnvPlayerCommand, cfg.Player.Command)
	if v, ok := l.envLookup(EnvPlayerArgs); ok && v != "" {
		cfg.Player.Args = splitFields(v)
	}
	cfg.Player.ReadyAfter = l.envDuration(EnvPlayerReadyAfter, cfg.Player.ReadyAfter)
	cfg.Player.Debug = l.envBool(EnvDebug, cfg.Player.Debug)

	cfg.Stream.MaxErrors = l.envInt(EnvStreamMaxErrors, cfg.Stream.MaxErrors)
	cfg.Stream.SettleDelay = l.envDuration(EnvStreamSettle, cfg.Stream.SettleDelay)
	cfg.Stream.CloseGrace = l.envDuration(EnvStreamGrace, cfg.Stream.CloseGrace)
	cfg.Stream.StartTimeout = l.envDuration(EnvStreamStart, cfg.Stream.StartTimeout)
	cfg.Stream.AutoStartAnimation = l.envBool(EnvAutoStart, cfg.Stream.AutoStartAnimation)

	cfg.Remote.RTSPPort = l.envInt(EnvRTSPPort, cfg.Remote.RTSPPort)
	cfg.Remote.RTSPPath = l.envString(EnvRTSPPath, cfg.Remote.RTSPPath)
	cfg.Remote.StatusPort = l.envInt(EnvStatusPort, cfg.Remote.StatusPort)
	cfg.Remote.StatusPath = l.envString(EnvStatusPath, cfg.Remote.StatusPath)
	cfg.Remote.StatusInterval = l.envDuration(EnvStatusInterval, cfg.Remote.StatusInterval)

	cfg.Launch.PerRequesterRate = l.envFloat(EnvLaunchRate, cfg.Launch.PerRequesterRate)
	cfg.Launch.Burst = l.envInt(EnvLaunchBurst, cfg.Launch.Burst)

	cfg.State.Backend = l.envString(EnvStateBackend, cfg.State.Backend)
	cfg.State.Path = l.envString(EnvStatePath, cfg.State.Path)
	cfg.Notifications.Path = l.envString(EnvNotificationsDB, cfg.Notifications.Path)

	cfg.Relay.RedisAddr = l.envString(EnvRedisAddr, cfg.Relay.RedisAddr)
	cfg.Relay.RedisPassword = l.envString(EnvRedisPassword, cfg.Relay.RedisPassword)
	cfg.Relay.Channel = l.envString(EnvRedisChannel, cfg.Relay.Channel)

	cfg.Telemetry.Enabled = l.envBool(EnvOTelEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvOTelExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvOTelEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvOTelSampling, cfg.Telemetry.SamplingRate)
}
