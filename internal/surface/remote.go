// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package surface

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/bus"
	"github.com/Mokrovi/backServ/internal/config"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/metrics"
	"github.com/Mokrovi/backServ/internal/player"
)

// RemoteStatus is the operator view of a remote-view surface.
type RemoteStatus struct {
	ID          string    `json:"id"`
	Requester   string    `json:"requester"`
	StreamURL   string    `json:"stream_url"`
	StartedAt   time.Time `json:"started_at"`
	LastPoll    string    `json:"last_poll,omitempty"`
	LastPollAt  time.Time `json:"last_poll_at,omitempty"`
	PlayerState string    `json:"player_state"`
}

// RemoteSurface mirrors a requester's RTSP stream while the requester
// reports it is streaming.
type RemoteSurface struct {
	id        string
	host      *Host
	requester string
	settings  config.RemoteSettings
	startedAt time.Time
	logger    zerolog.Logger
	player    player.Player

	mu     sync.Mutex
	status RemoteStatus
}

func newRemoteSurface(h *Host, id, requester string, settings config.RemoteSettings) *RemoteSurface {
	now := time.Now()
	return &RemoteSurface{
		id:        id,
		host:      h,
		requester: requester,
		settings:  settings,
		startedAt: now,
		logger: h.logger.With().
			Str(log.FieldSurface, string(bus.SurfaceRemote)).
			Str(log.FieldSurfaceID, id).
			Str(log.FieldRequester, requester).
			Logger(),
		player: h.cfg.Players(player.RoleRemote, false),
		status: RemoteStatus{
			ID:          id,
			Requester:   requester,
			StreamURL:   settings.StreamURL(requester),
			StartedAt:   now,
			PlayerState: "starting",
		},
	}
}

func (s *RemoteSurface) run(ctx context.Context) {
	defer s.host.release(bus.SurfaceRemote, s.id)

	sub := s.host.cfg.Bus.Subscribe(ctx, bus.KindCloseRemoteSurface)
	s.host.announce(bus.SurfaceRemote, s.id, true)

	pollCtx, stopPolling := context.WithCancel(ctx)
	stopped := make(chan struct{}, 1)
	var pollers sync.WaitGroup

	reason := ""
	if err := s.player.Play(s.settings.StreamURL(s.requester)); err != nil {
		s.logger.Error().Err(err).Msg("failed to start remote player")
		reason = ReasonPlayerError
	} else {
		pollers.Add(1)
		go func() {
			defer pollers.Done()
			s.poll(pollCtx, stopped)
		}()
		reason = s.loop(ctx, sub, stopped)
	}

	stopPolling()
	pollers.Wait()
	s.player.Close()
	_ = sub.Close()

	s.host.announce(bus.SurfaceRemote, s.id, false)
	metrics.RecordSurfaceClose(string(bus.SurfaceRemote), reason)
	s.logger.Info().
		Str(log.FieldEvent, "surface.closed").
		Str("reason", reason).
		Dur("uptime", time.Since(s.startedAt)).
		Msg("remote surface closed")
}

func (s *RemoteSurface) loop(ctx context.Context, sub *bus.Subscription, stopped <-chan struct{}) string {
	events := s.player.Events()
	for {
		select {
		case <-ctx.Done():
			return ReasonShutdown
		case _, ok := <-sub.C():
			if !ok {
				return ReasonShutdown
			}
			return ReasonCloseSignal
		case <-stopped:
			return ReasonStopped
		case ev, ok := <-events:
			if !ok {
				return ReasonPlayerError
			}
			s.setPlayerState(string(ev.Kind))
			switch ev.Kind {
			case player.EventEnded:
				return ReasonEnded
			case player.EventError:
				s.logger.Warn().Err(ev.Err).Msg("remote player failed")
				return ReasonPlayerError
			}
		}
	}
}

// poll checks the requester every StatusInterval. Errors are logged and
// polling continues; a non-live status stops the surface.
func (s *RemoteSurface) poll(ctx context.Context, stopped chan<- struct{}) {
	url := s.settings.StatusURL(s.requester)
	interval := s.settings.StatusInterval
	if interval <= 0 {
		interval = defaultStatusInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := FetchStatus(ctx, s.host.cfg.Client, url)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			metrics.RecordRemoteStatusPoll("error")
			s.setPoll("error")
			s.logger.Warn().Err(err).Str("status_url", url).Msg("remote status poll failed")
		case !st.Live():
			metrics.RecordRemoteStatusPoll("stopped")
			s.setPoll("stopped")
			s.logger.Info().
				Bool("streaming", st.Streaming).
				Bool("rtsp_stream_active", st.RTSPStreamActive).
				Msg("requester stopped streaming")
			select {
			case stopped <- struct{}{}:
			default:
			}
			return
		default:
			metrics.RecordRemoteStatusPoll("streaming")
			s.setPoll("streaming")
		}
	}
}

func (s *RemoteSurface) setPoll(outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastPoll = outcome
	s.status.LastPollAt = time.Now()
}

func (s *RemoteSurface) setPlayerState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.PlayerState = state
}

// Status returns a snapshot.
func (s *RemoteSurface) Status() RemoteStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
