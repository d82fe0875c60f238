// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package surface

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/bus"
	"github.com/Mokrovi/backServ/internal/config"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/metrics"
	"github.com/Mokrovi/backServ/internal/player"
	"github.com/Mokrovi/backServ/internal/resilience"
)

// Close reasons, also used as metric labels.
const (
	ReasonCloseSignal = "close_signal"
	ReasonEnded       = "ended"
	ReasonTerminal    = "terminal"
	ReasonShutdown    = "shutdown"
	ReasonPlayerError = "player_error"
	ReasonStopped     = "remote_stopped"
)

// StreamStatus is the operator view of a stream surface.
type StreamStatus struct {
	ID        string            `json:"id"`
	StartedAt time.Time         `json:"started_at"`
	Debug     bool              `json:"debug"`
	Playback  resilience.Status `json:"playback"`
	Closing   bool              `json:"closing"`
	Animation AnimationStatus   `json:"animation"`
}

// StreamSurface plays a primary/fallback stream pair with an animation
// overlay until it is closed.
type StreamSurface struct {
	id        string
	host      *Host
	launch    StreamLaunch
	settings  config.StreamSettings
	startedAt time.Time
	logger    zerolog.Logger

	player  player.Player
	anim    *Animation
	session *resilience.FallbackSession

	// playGen is the generation of the latest Play call; events from
	// earlier generations are stale.
	playGen atomic.Uint64

	closeCh    chan string
	playFailed chan error

	mu         sync.Mutex
	closeTimer resilience.Timer
	closeGen   uint64
}

func newStreamSurface(h *Host, id string, req StreamLaunch, settings config.StreamSettings) *StreamSurface {
	logger := h.logger.With().
		Str(log.FieldSurface, string(bus.SurfaceStream)).
		Str(log.FieldSurfaceID, id).
		Logger()

	s := &StreamSurface{
		id:         id,
		host:       h,
		launch:     req,
		settings:   settings,
		startedAt:  time.Now(),
		logger:     logger,
		player:     h.cfg.Players(player.RoleStream, req.Debug),
		closeCh:    make(chan string, 1),
		playFailed: make(chan error, 1),
	}
	s.anim = newAnimation(h.cfg.Players(player.RoleAnimation, req.Debug), h.cfg.Resolver, logger)

	cfgLogger := logger
	s.session = resilience.NewFallbackSession(resilience.FallbackConfig{
		Primary:     req.Primary,
		Fallback:    req.Fallback,
		MaxErrors:   settings.MaxErrors,
		SettleDelay: settings.SettleDelay,
		Scheduler:   h.cfg.Scheduler,
		Logger:      &cfgLogger,
	}, resilience.Callbacks{
		Play:      s.play,
		Terminal:  s.onTerminal,
		Completed: func() { s.requestClose(ReasonEnded) },
	})
	return s
}

func (s *StreamSurface) run(ctx context.Context) {
	defer s.host.release(bus.SurfaceStream, s.id)

	// Subscribe before raising the flag so no signal sent after the flag is
	// visible can be missed.
	sub := s.host.cfg.Bus.Subscribe(ctx,
		bus.KindCloseStreamSurface, bus.KindUpdateStreamURLs, bus.KindIntentChanged)
	s.host.announce(bus.SurfaceStream, s.id, true)

	s.startAnimation(ctx)
	s.session.Start()

	reason := s.loop(ctx, sub)
	s.teardown(sub, reason)
}

func (s *StreamSurface) loop(ctx context.Context, sub *bus.Subscription) string {
	events := s.player.Events()
	animEvents := s.anim.Events()
	for {
		select {
		case <-ctx.Done():
			return ReasonShutdown

		case reason := <-s.closeCh:
			return reason

		case sig, ok := <-sub.C():
			if !ok {
				return ReasonShutdown
			}
			if reason, done := s.handleSignal(ctx, sig); done {
				return reason
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handlePlayerEvent(ev)

		case err := <-s.playFailed:
			s.session.OnError(err)

		case ev, ok := <-animEvents:
			if !ok {
				animEvents = nil
				continue
			}
			s.anim.HandleEvent(ev)
		}
	}
}

func (s *StreamSurface) handleSignal(ctx context.Context, sig bus.Signal) (string, bool) {
	switch sig := sig.(type) {
	case bus.CloseStreamSurface:
		return ReasonCloseSignal, true
	case bus.UpdateStreamURLs:
		s.cancelCloseTimer()
		select {
		case reason := <-s.closeCh:
			if reason != ReasonTerminal {
				return reason, true
			}
		default:
		}
		s.logger.Info().
			Str(log.FieldEvent, "stream.redirect").
			Str(log.FieldPrimaryURL, sig.Primary).
			Str(log.FieldFallbackURL, sig.Fallback).
			Msg("redirecting stream surface")
		s.session.Restart(sig.Primary, sig.Fallback)
	case bus.IntentChanged:
		// A lagging subscriber loses the newest snapshots, so the signal
		// only rings and the store is read again.
		name, volume := sig.VideoName, sig.Volume
		if src := s.host.cfg.Intent; src != nil {
			in := src.Get()
			name, volume = in.VideoName, in.Volume
		}
		s.anim.Apply(ctx, name, volume)
	}
	return "", false
}

func (s *StreamSurface) handlePlayerEvent(ev player.Event) {
	if ev.Gen != s.playGen.Load() {
		return
	}
	if s.launch.Debug {
		s.logger.Info().Str("player_event", string(ev.Kind)).Str(log.FieldSourceURL, ev.URL).Msg("stream player event")
	}
	switch ev.Kind {
	case player.EventBuffering:
		s.session.OnBuffering()
	case player.EventReady:
		s.session.OnReady()
	case player.EventEnded:
		s.session.OnEnded()
	case player.EventError:
		s.session.OnError(ev.Err)
	}
}

// play runs under the session lock: it must not call back into the session.
func (s *StreamSurface) play(url string) {
	s.playGen.Add(1)
	if err := s.player.Play(url); err != nil {
		s.playGen.Add(^uint64(0))
		s.logger.Error().Err(err).Str(log.FieldSourceURL, url).Msg("failed to start stream player")
		select {
		case s.playFailed <- err:
		default:
		}
	}
}

// onTerminal runs under the session lock.
func (s *StreamSurface) onTerminal(reason error) {
	s.logger.Warn().
		Err(reason).
		Str(log.FieldEvent, "stream.terminal").
		Dur("grace", s.settings.CloseGrace).
		Msg("playback failed, closing after grace period")
	s.player.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCloseTimerLocked()
	gen := s.closeGen
	s.closeTimer = s.host.cfg.Scheduler.AfterFunc(s.settings.CloseGrace, func() {
		s.mu.Lock()
		current := s.closeGen == gen
		s.mu.Unlock()
		if current {
			s.requestClose(ReasonTerminal)
		}
	})
}

func (s *StreamSurface) cancelCloseTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCloseTimerLocked()
}

func (s *StreamSurface) stopCloseTimerLocked() {
	s.closeGen++
	if s.closeTimer != nil {
		s.closeTimer.Stop()
		s.closeTimer = nil
	}
}

func (s *StreamSurface) requestClose(reason string) {
	select {
	case s.closeCh <- reason:
	default:
	}
}

func (s *StreamSurface) startAnimation(ctx context.Context) {
	src := s.host.cfg.Intent
	if src == nil {
		return
	}
	in := src.Get()
	if in.VideoName == "" && s.settings.AutoStartAnimation && s.host.cfg.Resolver != nil {
		videos, err := s.host.cfg.Resolver.ListAvailable(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to list videos for animation autostart")
		} else if len(videos) > 0 {
			// The resulting IntentChanged is delivered through the subscription.
			if selected, changed := src.SelectIfEmpty(videos[0].Name); changed {
				s.logger.Info().Str(log.FieldVideoName, selected.VideoName).Msg("auto-selected animation")
			}
			return
		}
	}
	s.anim.Apply(ctx, in.VideoName, in.Volume)
}

func (s *StreamSurface) teardown(sub *bus.Subscription, reason string) {
	s.cancelCloseTimer()
	s.session.Stop()
	s.player.Close()
	s.anim.Close()
	_ = sub.Close()

	s.host.announce(bus.SurfaceStream, s.id, false)
	metrics.RecordSurfaceClose(string(bus.SurfaceStream), reason)
	s.logger.Info().
		Str(log.FieldEvent, "surface.closed").
		Str("reason", reason).
		Dur("uptime", time.Since(s.startedAt)).
		Msg("stream surface closed")
}

// Status returns a snapshot.
func (s *StreamSurface) Status() StreamStatus {
	s.mu.Lock()
	closing := s.closeTimer != nil
	s.mu.Unlock()
	return StreamStatus{
		ID:        s.id,
		StartedAt: s.startedAt,
		Debug:     s.launch.Debug,
		Playback:  s.session.Status(),
		Closing:   closing,
		Animation: s.anim.Status(),
	}
}
