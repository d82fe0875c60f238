// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"time"
)

// mergeFileConfig merges file configuration into cfg. Only keys present in
// the file override the defaults.
func (l *Loader) mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	if src.DataDir != "" {
		dst.DataDir = expandEnv(src.DataDir)
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}

	if err := l.mergeFileAPI(dst, src); err != nil {
		return err
	}
	l.mergeFileMetrics(dst, src)
	l.mergeFileMedia(dst, src)
	if err := l.mergeFilePlayer(dst, src); err != nil {
		return err
	}
	if err := l.mergeFileStream(dst, src); err != nil {
		return err
	}
	if err := l.mergeFileRemote(dst, src); err != nil {
		return err
	}
	if err := l.mergeFileLaunch(dst, src); err != nil {
		return err
	}
	l.mergeFileStorage(dst, src)
	l.mergeFileTelemetry(dst, src)
	return l.mergeFileServer(dst, src)
}

func (l *Loader) mergeFileAPI(dst *AppConfig, src *FileConfig) error {
	if src.API.ListenAddr != "" {
		dst.API.ListenAddr = src.API.ListenAddr
	}
	if src.API.MaxConns != nil {
		dst.API.MaxConns = *src.API.MaxConns
	}
	if rl := src.API.RateLimit; rl != nil {
		if rl.Enabled != nil {
			dst.API.RateLimitEnabled = *rl.Enabled
		}
		if rl.Requests != nil {
			dst.API.RateLimitRequests = *rl.Requests
		}
		if err := mergeDuration(&dst.API.RateLimitWindow, rl.Window, "api.rateLimit.window"); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) mergeFileMetrics(dst *AppConfig, src *FileConfig) {
	if src.Metrics.Enabled != nil {
		dst.Metrics.Enabled = *src.Metrics.Enabled
	}
	if src.Metrics.ListenAddr != "" {
		dst.Metrics.ListenAddr = src.Metrics.ListenAddr
	}
}

func (l *Loader) mergeFileMedia(dst *AppConfig, src *FileConfig) {
	if src.Media.ExternalRoot != "" {
		dst.Media.ExternalRoot = expandEnv(src.Media.ExternalRoot)
	}
	if len(src.Media.Roots) > 0 {
		roots := make([]string, 0, len(src.Media.Roots))
		for _, r := range src.Media.Roots {
			roots = append(roots, expandEnv(r))
		}
		dst.Media.Roots = roots
	}
	if src.Media.MaxDepth != nil {
		dst.Media.MaxDepth = *src.Media.MaxDepth
	}
}

func (l *Loader) mergeFilePlayer(dst *AppConfig, src *FileConfig) error {
	p := src.Player
	if p.Command != "" {
		dst.Player.Command = p.Command
	}
	if p.Args != nil {
		dst.Player.Args = append([]string(nil), p.Args...)
	}
	if p.DebugArgs != nil {
		dst.Player.DebugArgs = append([]string(nil), p.DebugArgs...)
	}
	if p.Debug != nil {
		dst.Player.Debug = *p.Debug
	}
	return mergeDuration(&dst.Player.ReadyAfter, p.ReadyAfter, "player.readyAfter")
}

func (l *Loader) mergeFileStream(dst *AppConfig, src *FileConfig) error {
	s := src.Stream
	if s.MaxErrors != nil {
		dst.Stream.MaxErrors = *s.MaxErrors
	}
	if s.AutoStartAnimation != nil {
		dst.Stream.AutoStartAnimation = *s.AutoStartAnimation
	}
	if err := mergeDuration(&dst.Stream.SettleDelay, s.SettleDelay, "stream.settleDelay"); err != nil {
		return err
	}
	if err := mergeDuration(&dst.Stream.CloseGrace, s.CloseGrace, "stream.closeGrace"); err != nil {
		return err
	}
	return mergeDuration(&dst.Stream.StartTimeout, s.StartTimeout, "stream.startTimeout")
}

func (l *Loader) mergeFileRemote(dst *AppConfig, src *FileConfig) error {
	r := src.Remote
	if r.RTSPPort != nil {
		dst.Remote.RTSPPort = *r.RTSPPort
	}
	if r.RTSPPath != "" {
		dst.Remote.RTSPPath = r.RTSPPath
	}
	if r.StatusPort != nil {
		dst.Remote.StatusPort = *r.StatusPort
	}
	if r.StatusPath != "" {
		dst.Remote.StatusPath = r.StatusPath
	}
	if err := mergeDuration(&dst.Remote.StatusInterval, r.StatusInterval, "remote.statusInterval"); err != nil {
		return err
	}
	return mergeDuration(&dst.Remote.StatusTimeout, r.StatusTimeout, "remote.statusTimeout")
}

func (l *Loader) mergeFileLaunch(dst *AppConfig, src *FileConfig) error {
	lc := src.Launch
	if lc.PerRequesterRate != nil {
		dst.Launch.PerRequesterRate = *lc.PerRequesterRate
	}
	if lc.Burst != nil {
		dst.Launch.Burst = *lc.Burst
	}
	if lc.BreakerThreshold != nil {
		dst.Launch.BreakerThreshold = *lc.BreakerThreshold
	}
	return mergeDuration(&dst.Launch.BreakerReset, lc.BreakerReset, "launch.breakerReset")
}

func (l *Loader) mergeFileStorage(dst *AppConfig, src *FileConfig) {
	if src.State.Backend != "" {
		dst.State.Backend = src.State.Backend
	}
	if src.State.Path != "" {
		dst.State.Path = expandEnv(src.State.Path)
	}
	if src.Notifications.Path != "" {
		dst.Notifications.Path = expandEnv(src.Notifications.Path)
	}
	if src.Relay.RedisAddr != "" {
		dst.Relay.RedisAddr = src.Relay.RedisAddr
	}
	if src.Relay.RedisPassword != "" {
		dst.Relay.RedisPassword = expandEnv(src.Relay.RedisPassword)
	}
	if src.Relay.RedisDB != nil {
		dst.Relay.RedisDB = *src.Relay.RedisDB
	}
	if src.Relay.Channel != "" {
		dst.Relay.Channel = src.Relay.Channel
	}
}

func (l *Loader) mergeFileTelemetry(dst *AppConfig, src *FileConfig) {
	t := src.Telemetry
	if t.Enabled != nil {
		dst.Telemetry.Enabled = *t.Enabled
	}
	if t.Exporter != "" {
		dst.Telemetry.Exporter = t.Exporter
	}
	if t.Endpoint != "" {
		dst.Telemetry.Endpoint = t.Endpoint
	}
	if t.SamplingRate != nil {
		dst.Telemetry.SamplingRate = *t.SamplingRate
	}
	if t.Environment != "" {
		dst.Telemetry.Environment = t.Environment
	}
}

func (l *Loader) mergeFileServer(dst *AppConfig, src *FileConfig) error {
	s := src.Server
	if s == nil {
		return nil
	}
	if s.MaxHeaderBytes != nil {
		dst.Server.MaxHeaderBytes = *s.MaxHeaderBytes
	}
	for _, d := range []struct {
		dst  *time.Duration
		raw  string
		name string
	}{
		{&dst.Server.ReadTimeout, s.ReadTimeout, "server.readTimeout"},
		{&dst.Server.WriteTimeout, s.WriteTimeout, "server.writeTimeout"},
		{&dst.Server.IdleTimeout, s.IdleTimeout, "server.idleTimeout"},
		{&dst.Server.ShutdownTimeout, s.ShutdownTimeout, "server.shutdownTimeout"},
	} {
		if err := mergeDuration(d.dst, d.raw, d.name); err != nil {
			return err
		}
	}
	return nil
}

func mergeDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	*dst = d
	return nil
}
