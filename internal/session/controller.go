// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session decides whether a stream request starts a new surface,
// redirects the live one, or has to wait for one that is still starting.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/bus"
	"github.com/Mokrovi/backServ/internal/command"
	"github.com/Mokrovi/backServ/internal/fsm"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/metrics"
	"github.com/Mokrovi/backServ/internal/notify"
	"github.com/Mokrovi/backServ/internal/resilience"
	"github.com/Mokrovi/backServ/internal/surface"
)

// ErrMissingURL is returned by Toggle when it would have to start a surface
// but the request carried no URL.
var ErrMissingURL = errors.New("toggle: no stream url to start")

// ErrLaunchFailed is returned by Relaunch when the surface could not start.
var ErrLaunchFailed = errors.New("stream surface launch failed")

const defaultStartTimeout = 15 * time.Second

// State of the stream surface as seen by the controller.
type State string

const (
	StateNoSurface State = "no_surface"
	StateStarting  State = "surface_starting"
	StateActive    State = "surface_active"
)

// Event drives the controller machine.
type Event string

const (
	EventLaunch       Event = "launch"
	EventActivated    Event = "activated"
	EventDeactivated  Event = "deactivated"
	EventLaunchFailed Event = "launch_failed"
	EventStartTimeout Event = "start_timeout"
)

// Outcome says what a start request did.
type Outcome string

const (
	OutcomeLaunched   Outcome = "launched"
	OutcomeRedirected Outcome = "redirected"
	OutcomeQueued     Outcome = "queued"
	OutcomeNotified   Outcome = "notified"
	OutcomeClosed     Outcome = "closed"
	OutcomeNoop       Outcome = "noop"
)

// StreamLauncher starts stream surfaces.
type StreamLauncher interface {
	LaunchStream(ctx context.Context, req surface.StreamLaunch) error
}

// Notifier records a launch that needs manual follow-up.
type Notifier interface {
	Post(ctx context.Context, n notify.Notification) (notify.Notification, error)
}

// Config wires a Controller.
type Config struct {
	Bus          *bus.Bus
	Flags        *bus.Flags
	Launcher     StreamLauncher
	Notifier     Notifier
	Scheduler    resilience.Scheduler
	StartTimeout time.Duration
	Debug        bool
}

// Controller serializes stream commands against the surface lifecycle.
type Controller struct {
	bus      *bus.Bus
	flags    *bus.Flags
	launcher StreamLauncher
	notifier Notifier
	sched    resilience.Scheduler
	logger   zerolog.Logger
	sub      *bus.Subscription

	debug        atomic.Bool
	startTimeout atomic.Int64

	mu           sync.Mutex
	machine      *fsm.Machine[State, Event]
	activeID     string
	pending      *command.StreamRequest
	pendingClose bool
	startTimer   resilience.Timer
	startGen     uint64
	startedAt    time.Time
}

// NewController builds a controller in NoSurface. It subscribes to surface
// announcements immediately; Run consumes them.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Bus == nil || cfg.Flags == nil || cfg.Launcher == nil {
		return nil, fmt.Errorf("session: bus, flags and launcher are required")
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = resilience.RealScheduler
	}

	machine, err := fsm.New(StateNoSurface, []fsm.Transition[State, Event]{
		{From: StateNoSurface, Event: EventLaunch, To: StateStarting},
		{From: StateNoSurface, Event: EventActivated, To: StateActive},
		{From: StateStarting, Event: EventActivated, To: StateActive},
		{From: StateStarting, Event: EventLaunchFailed, To: StateNoSurface},
		{From: StateStarting, Event: EventStartTimeout, To: StateNoSurface},
		{From: StateActive, Event: EventDeactivated, To: StateNoSurface},
	})
	if err != nil {
		return nil, err
	}

	c := &Controller{
		bus:      cfg.Bus,
		flags:    cfg.Flags,
		launcher: cfg.Launcher,
		notifier: cfg.Notifier,
		sched:    cfg.Scheduler,
		logger:   log.WithComponent("session"),
		machine:  machine,
	}
	c.debug.Store(cfg.Debug)
	c.SetStartTimeout(cfg.StartTimeout)
	machine.OnTransition(func(from, to State, event Event) {
		metrics.RecordSessionTransition(string(from), string(to))
		c.logger.Debug().
			Str(log.FieldOldState, string(from)).
			Str(log.FieldNewState, string(to)).
			Str("trigger", string(event)).
			Msg("session transition")
	})
	c.sub = cfg.Bus.Subscribe(context.Background(), bus.KindSurfaceStateChanged)
	return c, nil
}

// SetDebug sets the debug flag passed to surfaces launched afterwards.
func (c *Controller) SetDebug(debug bool) { c.debug.Store(debug) }

// SetStartTimeout bounds how long a launched surface may take to report.
func (c *Controller) SetStartTimeout(d time.Duration) {
	if d <= 0 {
		d = defaultStartTimeout
	}
	c.startTimeout.Store(int64(d))
}

// Run applies surface announcements until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	defer func() { _ = c.sub.Close() }()
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.stopStartTimerLocked()
			c.mu.Unlock()
			return nil
		case sig, ok := <-c.sub.C():
			if !ok {
				return nil
			}
			if ev, ok := sig.(bus.SurfaceStateChanged); ok && ev.Surface == bus.SurfaceStream {
				c.onSurfaceState(ctx, ev)
			}
		}
	}
}

// StartOrRedirect launches a surface for req, redirects the live one, or
// queues req behind a surface that is still starting. A launch that fails is
// turned into a notification and is not reported as an error.
func (c *Controller) StartOrRedirect(ctx context.Context, req command.StreamRequest, requester string) (Outcome, error) {
	if req.Empty() {
		return OutcomeNoop, command.ErrMissingStreamURL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startOrRedirectLocked(ctx, req, requester, true)
}

// Relaunch behaves like StartOrRedirect for a request retried from a
// notification. A launch that fails again is returned wrapped in
// ErrLaunchFailed and no further notification is posted.
func (c *Controller) Relaunch(ctx context.Context, req command.StreamRequest, requester string) (Outcome, error) {
	if req.Empty() {
		return OutcomeNoop, command.ErrMissingStreamURL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startOrRedirectLocked(ctx, req, requester, false)
}

func (c *Controller) startOrRedirectLocked(ctx context.Context, req command.StreamRequest, requester string, notifyOnFailure bool) (Outcome, error) {
	logger := c.logger.With().
		Str(log.FieldPrimaryURL, req.PrimaryURL).
		Str(log.FieldFallbackURL, req.FallbackURL).
		Str(log.FieldRequester, requester).
		Logger()

	if c.flags.StreamActive() {
		delivered := c.bus.Publish(bus.UpdateStreamURLs{Primary: req.PrimaryURL, Fallback: req.FallbackURL})
		logger.Info().
			Str(log.FieldEvent, "stream.redirect").
			Bool("delivered", delivered).
			Msg("redirecting active stream surface")
		return OutcomeRedirected, nil
	}

	switch c.machine.State() {
	case StateStarting:
		c.pending = &req
		c.pendingClose = false
		logger.Info().Str(log.FieldEvent, "stream.redirect_queued").Msg("surface still starting, request queued")
		return OutcomeQueued, nil
	case StateActive:
		// The surface lowered its flag but its announcement is still in flight.
		c.fireLocked(ctx, EventDeactivated)
		c.activeID = ""
	}

	c.fireLocked(ctx, EventLaunch)
	launch := surface.StreamLaunch{
		Primary:   req.PrimaryURL,
		Fallback:  req.FallbackURL,
		Debug:     c.debug.Load(),
		Requester: requester,
	}
	if err := c.launcher.LaunchStream(ctx, launch); err != nil {
		c.fireLocked(ctx, EventLaunchFailed)
		if !notifyOnFailure {
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "stream.relaunch_failed").
				Msg("could not start stream surface")
			return OutcomeNoop, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
		}
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "stream.launch_failed").
			Msg("could not start stream surface, posting notification")
		c.postLocked(ctx, notify.Notification{
			Kind:        notify.KindStream,
			PrimaryURL:  req.PrimaryURL,
			FallbackURL: req.FallbackURL,
			Requester:   requester,
			Debug:       launch.Debug,
			Reason:      err.Error(),
		})
		return OutcomeNotified, nil
	}

	c.startedAt = c.sched.Now()
	c.armStartTimerLocked()
	logger.Info().
		Str(log.FieldEvent, "stream.launch").
		Bool("debug", launch.Debug).
		Msg("stream surface launched")
	return OutcomeLaunched, nil
}

// Close asks the live surface to close. A close while starting is delivered
// once the surface reports active.
func (c *Controller) Close(ctx context.Context) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked(ctx)
}

func (c *Controller) closeLocked(_ context.Context) Outcome {
	if c.flags.StreamActive() {
		c.bus.Publish(bus.CloseStreamSurface{})
		c.logger.Info().Str(log.FieldEvent, "stream.close").Msg("closing stream surface")
		return OutcomeClosed
	}
	if c.machine.State() == StateStarting {
		c.pending = nil
		c.pendingClose = true
		c.logger.Info().Str(log.FieldEvent, "stream.close_queued").Msg("surface still starting, close queued")
		return OutcomeQueued
	}
	return OutcomeNoop
}

// Toggle closes the live or starting surface, otherwise starts one from url.
func (c *Controller) Toggle(ctx context.Context, url, requester string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flags.StreamActive() || c.machine.State() == StateStarting {
		return c.closeLocked(ctx), nil
	}
	req, err := command.NewStreamRequest(url, "")
	if err != nil {
		c.logger.Error().
			Str(log.FieldEvent, "stream.toggle_rejected").
			Str(log.FieldRequester, requester).
			Msg("stream url is missing, cannot start stream surface")
		return OutcomeNoop, ErrMissingURL
	}
	return c.startOrRedirectLocked(ctx, req, requester, true)
}

func (c *Controller) onSurfaceState(ctx context.Context, ev bus.SurfaceStateChanged) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !ev.Active {
		if ev.ID == "" || ev.ID != c.activeID {
			return
		}
		c.activeID = ""
		c.fireLocked(ctx, EventDeactivated)
		return
	}

	wasStarting := c.machine.State() == StateStarting
	if !c.fireLocked(ctx, EventActivated) {
		return
	}
	c.activeID = ev.ID
	c.stopStartTimerLocked()
	if !wasStarting {
		c.logger.Info().
			Str(log.FieldSurfaceID, ev.ID).
			Msg("stream surface started outside the controller")
		return
	}
	c.logger.Debug().
		Str(log.FieldSurfaceID, ev.ID).
		Dur("startup", c.sched.Now().Sub(c.startedAt)).
		Msg("stream surface reported active")

	switch {
	case c.pendingClose:
		c.bus.Publish(bus.CloseStreamSurface{})
		c.logger.Info().Str(log.FieldEvent, "stream.close").Msg("delivering queued close")
	case c.pending != nil:
		c.bus.Publish(bus.UpdateStreamURLs{Primary: c.pending.PrimaryURL, Fallback: c.pending.FallbackURL})
		c.logger.Info().
			Str(log.FieldEvent, "stream.redirect").
			Str(log.FieldPrimaryURL, c.pending.PrimaryURL).
			Str(log.FieldFallbackURL, c.pending.FallbackURL).
			Msg("delivering queued redirect")
	}
	c.pending = nil
	c.pendingClose = false
}

func (c *Controller) armStartTimerLocked() {
	c.stopStartTimerLocked()
	gen := c.startGen
	c.startTimer = c.sched.AfterFunc(time.Duration(c.startTimeout.Load()), func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.startGen || c.machine.State() != StateStarting {
			return
		}
		c.startTimer = nil
		c.pending = nil
		c.pendingClose = false
		c.fireLocked(context.Background(), EventStartTimeout)
		c.logger.Warn().
			Str(log.FieldEvent, "stream.start_timeout").
			Msg("stream surface did not report active in time")
	})
}

func (c *Controller) stopStartTimerLocked() {
	c.startGen++
	if c.startTimer != nil {
		c.startTimer.Stop()
		c.startTimer = nil
	}
}

// fireLocked applies event and reports whether it was a valid transition.
func (c *Controller) fireLocked(ctx context.Context, event Event) bool {
	if _, err := c.machine.Fire(ctx, event); err != nil {
		c.logger.Debug().Err(err).Msg("ignored session event")
		return false
	}
	return true
}

func (c *Controller) postLocked(ctx context.Context, n notify.Notification) {
	if c.notifier == nil {
		return
	}
	if _, err := c.notifier.Post(ctx, n); err != nil {
		c.logger.Error().Err(err).Msg("failed to post fallback notification")
	}
}

// ControllerStatus is the operator view of the controller.
type ControllerStatus struct {
	State          State  `json:"state"`
	ActiveSurface  string `json:"active_surface,omitempty"`
	PendingRequest bool   `json:"pending_request"`
	PendingClose   bool   `json:"pending_close"`
	Debug          bool   `json:"debug"`
}

// Status returns a snapshot.
func (c *Controller) Status() ControllerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ControllerStatus{
		State:          c.machine.State(),
		ActiveSurface:  c.activeID,
		PendingRequest: c.pending != nil,
		PendingClose:   c.pendingClose,
		Debug:          c.debug.Load(),
	}
}
