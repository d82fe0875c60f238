// SPDX-License-Identifier: MIT

// Package daemon wires the command server, the surface host and their
// stores, and runs them until shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Mokrovi/backServ/internal/api"
	"github.com/Mokrovi/backServ/internal/bus"
	"github.com/Mokrovi/backServ/internal/config"
	"github.com/Mokrovi/backServ/internal/health"
	"github.com/Mokrovi/backServ/internal/intent"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/media"
	"github.com/Mokrovi/backServ/internal/notify"
	"github.com/Mokrovi/backServ/internal/player"
	"github.com/Mokrovi/backServ/internal/ratelimit"
	"github.com/Mokrovi/backServ/internal/resilience"
	"github.com/Mokrovi/backServ/internal/session"
	"github.com/Mokrovi/backServ/internal/surface"
	"github.com/Mokrovi/backServ/internal/telemetry"
)

// Runtime is a fully wired daemon.
type Runtime struct {
	App     *App
	Manager Manager
	API     *api.Server
	Health  *health.Manager
	Host    *surface.Host

	logger  zerolog.Logger
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (r *Runtime) onClose(name string, fn func() error) {
	r.closers = append(r.closers, namedCloser{name: name, close: fn})
}

// Run blocks until ctx is cancelled or a server or component fails.
func (r *Runtime) Run(ctx context.Context) error {
	return r.App.Run(ctx)
}

// Close releases stores and connections in reverse open order. Call it
// after Run has returned.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if err := c.close(); err != nil {
			r.logger.Warn().Err(err).Str("resource", c.name).Msg("close failed")
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Bootstrap builds every component from cfg. holder may be nil, in which case
// hot reload is disabled.
func Bootstrap(ctx context.Context, cfg config.AppConfig, holder *config.ConfigHolder) (_ *Runtime, err error) {
	rt := &Runtime{logger: log.WithComponent("daemon")}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	signals := bus.New()
	rt.onClose("bus", func() error { signals.Close(); return nil })
	flags := &bus.Flags{}

	resolver := media.NewResolver(cfg.Media.SearchRoots(), cfg.Media.MaxDepth)

	var persist intent.Persister
	if strings.EqualFold(cfg.State.Backend, config.StateBackendBadger) {
		bp, err := intent.OpenBadgerPersister(cfg.State.Path)
		if err != nil {
			return nil, fmt.Errorf("open intent store: %w", err)
		}
		rt.onClose("intent", bp.Close)
		persist = bp
	}
	intents := intent.NewStore(signals, persist)
	if err := intents.Restore(ctx); err != nil {
		rt.logger.Warn().Err(err).Msg("could not restore animation intent, using defaults")
	}

	notes, err := notify.Open(cfg.Notifications.Path)
	if err != nil {
		return nil, fmt.Errorf("open notification store: %w", err)
	}
	rt.onClose("notifications", notes.Close)

	playerCmd := cfg.Player.Command
	if playerCmd == "" {
		playerCmd = player.DefaultOptions(player.RoleStream).Command
	}
	host := surface.NewHost(surface.HostConfig{
		Bus:         signals,
		Flags:       flags,
		Players:     player.ExecFactory(playerOptions(cfg.Player)),
		Resolver:    resolver,
		Intent:      intents,
		Limiter:     ratelimit.New(launchLimits(cfg.Launch)),
		Breaker:     resilience.NewCircuitBreaker("player", cfg.Launch.BreakerThreshold, cfg.Launch.BreakerReset),
		CheckPlayer: func() error { return player.Available(playerCmd) },
		Stream:      cfg.Stream,
		Remote:      cfg.Remote,
	})
	rt.Host = host

	controller, err := session.NewController(session.Config{
		Bus:          signals,
		Flags:        flags,
		Launcher:     host,
		Notifier:     notes,
		StartTimeout: cfg.Stream.StartTimeout,
		Debug:        cfg.Player.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create session controller: %w", err)
	}
	remote := session.NewRemoteController(signals, flags, host, notes)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewDirsChecker("media_roots", resolver.Roots()))
	hm.RegisterChecker(health.NewCheckFunc("notifications", notes.Check))
	hm.RegisterChecker(health.NewCheckFunc("surface_host", func(context.Context) error {
		if !host.Running() {
			return errors.New("surface host not running")
		}
		return nil
	}))
	rt.Health = hm

	var relay *bus.RedisRelay
	if cfg.Relay.Enabled() {
		client, err := bus.NewRedisClient(ctx, bus.RedisConfig{
			Addr:     cfg.Relay.RedisAddr,
			Password: cfg.Relay.RedisPassword,
			DB:       cfg.Relay.RedisDB,
			Channel:  cfg.Relay.Channel,
		})
		if err != nil {
			rt.logger.Warn().Err(err).Str("addr", cfg.Relay.RedisAddr).Msg("signal relay disabled")
		} else {
			rt.onClose("redis", client.Close)
			relay = bus.NewRedisRelay(client, signals, cfg.Relay.Channel, log.WithComponent("relay"))
			hm.RegisterChecker(health.NewCheckFunc("relay", relay.HealthCheck))
		}
	}

	server, err := api.New(cfg, api.Deps{
		Controller:    controller,
		Remote:        remote,
		Intent:        intents,
		Videos:        resolver,
		Flags:         flags,
		Notifications: notes,
		Host:          host,
		Health:        hm,
	})
	if err != nil {
		return nil, fmt.Errorf("create api server: %w", err)
	}
	rt.API = server

	deps := Deps{
		Logger:     log.WithComponent("daemon"),
		APIHandler: server.Handler(),
	}
	if cfg.Metrics.Enabled {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.Metrics.ListenAddr
	}
	mgr, err := NewManager(config.ParseServerConfigForApp(cfg), deps)
	if err != nil {
		return nil, err
	}
	rt.Manager = mgr

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "backserv",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		rt.logger.Warn().Err(err).Msg("Telemetry initialization failed, continuing without tracing")
	} else {
		mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	}

	app := NewApp(rt.logger, mgr, holder)
	app.AddComponent("surface_host", host.Run)
	app.AddComponent("session", controller.Run)
	if relay != nil {
		app.AddComponent("relay", relay.Run)
	}
	app.OnReload(func(next config.AppConfig) {
		if next.LogLevel != "" {
			if err := log.SetLevel(next.LogLevel); err != nil {
				rt.logger.Warn().Err(err).Str("level", next.LogLevel).Msg("ignoring invalid log level")
			}
		}
		controller.SetDebug(next.Player.Debug)
		controller.SetStartTimeout(next.Stream.StartTimeout)
		host.SetStreamSettings(next.Stream)
		host.SetRemoteSettings(next.Remote)
	})
	rt.App = app

	rt.logger.Info().
		Str("address", config.LocalIPv4()+":"+config.ListenPort(cfg.API.ListenAddr)).
		Str("state_backend", cfg.State.Backend).
		Strs("media_roots", resolver.Roots()).
		Bool("relay", relay != nil).
		Msg("daemon wired")

	return rt, nil
}

func playerOptions(p config.PlayerSettings) player.Options {
	opts := player.DefaultOptions(player.RoleStream)
	if p.Command != "" {
		opts.Command = p.Command
	}
	if len(p.Args) > 0 {
		opts.Args = append([]string(nil), p.Args...)
	}
	opts.DebugArgs = append([]string(nil), p.DebugArgs...)
	if p.ReadyAfter > 0 {
		opts.ReadyAfter = p.ReadyAfter
	}
	return opts
}

func launchLimits(l config.LaunchSettings) ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	if l.PerRequesterRate > 0 {
		cfg.PerRequesterRate = rate.Limit(l.PerRequesterRate)
	}
	if l.Burst > 0 {
		cfg.PerRequesterBurst = l.Burst
	}
	return cfg
}
