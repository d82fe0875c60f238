// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration persistence.
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// Save writes the configuration to disk atomically. The file is fsynced
// before it replaces the previous one.
func (m *Manager) Save(cfg *AppConfig) error {
	if m.configPath == "" {
		return fmt.Errorf("save config: no config file path")
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	fileCfg := ToFileConfig(*cfg)

	pendingFile, err := renameio.NewPendingFile(m.configPath, renameio.WithPermissions(0600))
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	enc := yaml.NewEncoder(pendingFile)
	enc.SetIndent(2)
	if err := enc.Encode(fileCfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config file: %w", err)
	}
	return nil
}

// ToFileConfig maps the effective configuration back to its YAML form.
func ToFileConfig(cfg AppConfig) FileConfig {
	return FileConfig{
		DataDir:  cfg.DataDir,
		LogLevel: cfg.LogLevel,
		API: APIConfig{
			ListenAddr: cfg.API.ListenAddr,
			MaxConns:   intPtr(cfg.API.MaxConns),
			RateLimit: &RateLimitConfig{
				Enabled:  boolPtr(cfg.API.RateLimitEnabled),
				Requests: intPtr(cfg.API.RateLimitRequests),
				Window:   cfg.API.RateLimitWindow.String(),
			},
		},
		Metrics: MetricsConfig{
			Enabled:    boolPtr(cfg.Metrics.Enabled),
			ListenAddr: cfg.Metrics.ListenAddr,
		},
		Media: MediaConfig{
			ExternalRoot: cfg.Media.ExternalRoot,
			Roots:        cfg.Media.Roots,
			MaxDepth:     intPtr(cfg.Media.MaxDepth),
		},
		Player: PlayerConfig{
			Command:    cfg.Player.Command,
			Args:       cfg.Player.Args,
			DebugArgs:  cfg.Player.DebugArgs,
			ReadyAfter: cfg.Player.ReadyAfter.String(),
			Debug:      boolPtr(cfg.Player.Debug),
		},
		Stream: StreamConfig{
			MaxErrors:          intPtr(cfg.Stream.MaxErrors),
			SettleDelay:        cfg.Stream.SettleDelay.String(),
			CloseGrace:         cfg.Stream.CloseGrace.String(),
			StartTimeout:       cfg.Stream.StartTimeout.String(),
			AutoStartAnimation: boolPtr(cfg.Stream.AutoStartAnimation),
		},
		Remote: RemoteConfig{
			RTSPPort:       intPtr(cfg.Remote.RTSPPort),
			RTSPPath:       cfg.Remote.RTSPPath,
			StatusPort:     intPtr(cfg.Remote.StatusPort),
			StatusPath:     cfg.Remote.StatusPath,
			StatusInterval: cfg.Remote.StatusInterval.String(),
			StatusTimeout:  cfg.Remote.StatusTimeout.String(),
		},
		Launch: LaunchConfig{
			PerRequesterRate: floatPtr(cfg.Launch.PerRequesterRate),
			Burst:            intPtr(cfg.Launch.Burst),
			BreakerThreshold: intPtr(cfg.Launch.BreakerThreshold),
			BreakerReset:     cfg.Launch.BreakerReset.String(),
		},
		State: StateConfig{
			Backend: cfg.State.Backend,
			Path:    cfg.State.Path,
		},
		Notifications: NotificationsConfig{Path: cfg.Notifications.Path},
		Relay: RelayConfig{
			RedisAddr: cfg.Relay.RedisAddr,
			RedisDB:   intPtr(cfg.Relay.RedisDB),
			Channel:   cfg.Relay.Channel,
		},
		Telemetry: TelemetryConfig{
			Enabled:      boolPtr(cfg.Telemetry.Enabled),
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			SamplingRate: floatPtr(cfg.Telemetry.SamplingRate),
			Environment:  cfg.Telemetry.Environment,
		},
	}
}

func boolPtr(b bool) *bool        { return &b }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }
