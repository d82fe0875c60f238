// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package surface hosts the full-screen surfaces: the stream surface with its
// animation overlay and the remote-view surface.
package surface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/bus"
	"github.com/Mokrovi/backServ/internal/config"
	"github.com/Mokrovi/backServ/internal/intent"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/media"
	"github.com/Mokrovi/backServ/internal/metrics"
	"github.com/Mokrovi/backServ/internal/player"
	"github.com/Mokrovi/backServ/internal/resilience"
)

var (
	// ErrHostNotRunning is returned for launches before Run or after shutdown.
	ErrHostNotRunning = errors.New("surface host not running")
	// ErrSurfaceBusy is returned when a surface of that kind already exists.
	ErrSurfaceBusy = errors.New("surface already running")
	// ErrLaunchThrottled is returned when the launch budget is exhausted.
	ErrLaunchThrottled = errors.New("surface launch throttled")
	// ErrPlayerUnavailable is returned when the player cannot be started.
	ErrPlayerUnavailable = errors.New("player unavailable")
)

// Resolver is the media lookup the animation overlay needs.
type Resolver interface {
	Resolve(ctx context.Context, name string) (media.ResolvedMedia, error)
	ListAvailable(ctx context.Context) ([]media.Video, error)
}

// IntentSource is the animation intent as seen by the stream surface.
type IntentSource interface {
	Get() intent.Intent
	SelectIfEmpty(name string) (intent.Intent, bool)
}

// Limiter throttles launches per requester and kind.
type Limiter interface {
	Allow(requester, kind string) bool
}

// StreamLaunch carries everything a stream surface starts with.
type StreamLaunch struct {
	Primary   string
	Fallback  string
	Debug     bool
	Requester string
}

// HostConfig wires a Host.
type HostConfig struct {
	Bus       *bus.Bus
	Flags     *bus.Flags
	Players   player.Factory
	Resolver  Resolver
	Intent    IntentSource
	Limiter   Limiter
	Breaker   *resilience.CircuitBreaker
	Scheduler resilience.Scheduler
	Client    *http.Client

	// CheckPlayer probes the player binary. It runs through Breaker.
	CheckPlayer func() error

	Stream config.StreamSettings
	Remote config.RemoteSettings
	Logger *zerolog.Logger
}

// Host starts surfaces on request and owns their lifetime.
type Host struct {
	cfg    HostConfig
	logger zerolog.Logger

	mu       sync.Mutex
	running  bool
	ctx      context.Context
	stream   *StreamSurface
	remote   *RemoteSurface
	streamS  config.StreamSettings
	remoteS  config.RemoteSettings
	launches sync.WaitGroup
}

// NewHost creates a host. Launches fail until Run is called.
func NewHost(cfg HostConfig) *Host {
	if cfg.Scheduler == nil {
		cfg.Scheduler = resilience.RealScheduler
	}
	if cfg.Client == nil {
		cfg.Client = NewStatusClient(cfg.Remote.StatusTimeout)
	}
	if cfg.Flags == nil {
		cfg.Flags = &bus.Flags{}
	}
	logger := log.WithComponent("surface")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Host{
		cfg:     cfg,
		logger:  logger,
		streamS: cfg.Stream,
		remoteS: cfg.Remote,
	}
}

// Run accepts launches until ctx is done, then waits for every surface to
// tear down.
func (h *Host) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return fmt.Errorf("surface host already running")
	}
	h.running = true
	h.ctx = ctx
	h.mu.Unlock()

	h.logger.Info().Str(log.FieldEvent, "surface.host_started").Msg("surface host accepting launches")
	<-ctx.Done()

	h.mu.Lock()
	h.running = false
	h.mu.Unlock()

	h.launches.Wait()
	h.logger.Info().Str(log.FieldEvent, "surface.host_stopped").Msg("surface host stopped")
	return nil
}

// Running reports whether launches are accepted.
func (h *Host) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// SetStreamSettings applies to stream surfaces started afterwards.
func (h *Host) SetStreamSettings(s config.StreamSettings) {
	h.mu.Lock()
	h.streamS = s
	h.mu.Unlock()
}

// SetRemoteSettings applies to remote surfaces started afterwards.
func (h *Host) SetRemoteSettings(s config.RemoteSettings) {
	h.mu.Lock()
	h.remoteS = s
	h.mu.Unlock()
}

// LaunchStream starts a stream surface. The surface comes up asynchronously
// and announces itself with SurfaceStateChanged.
func (h *Host) LaunchStream(_ context.Context, req StreamLaunch) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.admitLocked(bus.SurfaceStream, req.Requester, h.stream != nil); err != nil {
		return err
	}

	s := newStreamSurface(h, uuid.NewString(), req, h.streamS)
	h.stream = s
	h.launches.Add(1)
	go func() {
		defer h.launches.Done()
		s.run(h.ctx)
	}()

	metrics.RecordSurfaceLaunch(string(bus.SurfaceStream), "started")
	h.logger.Info().
		Str(log.FieldEvent, "surface.launch").
		Str(log.FieldSurface, string(bus.SurfaceStream)).
		Str(log.FieldSurfaceID, s.id).
		Str(log.FieldPrimaryURL, req.Primary).
		Str(log.FieldFallbackURL, req.Fallback).
		Bool("debug", req.Debug).
		Msg("launching stream surface")
	return nil
}

// LaunchRemote starts a remote-view surface for requester.
func (h *Host) LaunchRemote(_ context.Context, requester string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.admitLocked(bus.SurfaceRemote, requester, h.remote != nil); err != nil {
		return err
	}

	s := newRemoteSurface(h, uuid.NewString(), requester, h.remoteS)
	h.remote = s
	h.launches.Add(1)
	go func() {
		defer h.launches.Done()
		s.run(h.ctx)
	}()

	metrics.RecordSurfaceLaunch(string(bus.SurfaceRemote), "started")
	h.logger.Info().
		Str(log.FieldEvent, "surface.launch").
		Str(log.FieldSurface, string(bus.SurfaceRemote)).
		Str(log.FieldSurfaceID, s.id).
		Str(log.FieldRequester, requester).
		Msg("launching remote surface")
	return nil
}

func (h *Host) admitLocked(kind bus.SurfaceKind, requester string, busy bool) error {
	outcome := ""
	var err error
	switch {
	case !h.running:
		outcome, err = "not_running", ErrHostNotRunning
	case busy:
		outcome, err = "busy", ErrSurfaceBusy
	case h.cfg.Limiter != nil && !h.cfg.Limiter.Allow(requester, string(kind)):
		outcome, err = "throttled", ErrLaunchThrottled
	default:
		if perr := h.checkPlayer(); perr != nil {
			outcome, err = "unavailable", fmt.Errorf("%w: %v", ErrPlayerUnavailable, perr)
		}
	}
	if err != nil {
		metrics.RecordSurfaceLaunch(string(kind), outcome)
	}
	return err
}

func (h *Host) checkPlayer() error {
	if h.cfg.CheckPlayer == nil {
		return nil
	}
	if h.cfg.Breaker == nil {
		return h.cfg.CheckPlayer()
	}
	return h.cfg.Breaker.Execute(h.cfg.CheckPlayer)
}

func (h *Host) release(kind bus.SurfaceKind, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch kind {
	case bus.SurfaceStream:
		if h.stream != nil && h.stream.id == id {
			h.stream = nil
		}
	case bus.SurfaceRemote:
		if h.remote != nil && h.remote.id == id {
			h.remote = nil
		}
	}
}

// announce flips the shared flag and publishes the change.
func (h *Host) announce(kind bus.SurfaceKind, id string, active bool) {
	h.cfg.Flags.Set(kind, active)
	metrics.SetSurfaceActive(string(kind), active)
	if h.cfg.Bus != nil {
		h.cfg.Bus.Publish(bus.SurfaceStateChanged{Surface: kind, Active: active, ID: id})
	}
}

// Status is the operator view of the host.
type Status struct {
	Running bool          `json:"running"`
	Stream  *StreamStatus `json:"stream,omitempty"`
	Remote  *RemoteStatus `json:"remote,omitempty"`
}

// Status returns a snapshot of the host and its surfaces.
func (h *Host) Status() Status {
	h.mu.Lock()
	st := Status{Running: h.running}
	stream, remote := h.stream, h.remote
	h.mu.Unlock()

	if stream != nil {
		ss := stream.Status()
		st.Stream = &ss
	}
	if remote != nil {
		rs := remote.Status()
		st.Remote = &rs
	}
	return st
}
