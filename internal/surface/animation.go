// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package surface

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/command"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/media"
	"github.com/Mokrovi/backServ/internal/player"
)

// AnimationState is the overlay's playback state.
type AnimationState string

const (
	AnimationIdle     AnimationState = "idle"
	AnimationLoading  AnimationState = "loading"
	AnimationPlaying  AnimationState = "playing"
	AnimationNotFound AnimationState = "not_found"
	AnimationError    AnimationState = "error"
)

// AnimationStatus is the operator view of the overlay.
type AnimationStatus struct {
	State     AnimationState `json:"state"`
	VideoName string         `json:"video_name,omitempty"`
	Path      string         `json:"path,omitempty"`
	Volume    float64        `json:"volume"`
}

// Animation loops a local video over the stream, driven by intent snapshots.
type Animation struct {
	player   player.Player
	resolver Resolver
	logger   zerolog.Logger

	mu      sync.Mutex
	status  AnimationStatus
	applied bool
}

func newAnimation(p player.Player, r Resolver, logger zerolog.Logger) *Animation {
	return &Animation{
		player:   p,
		resolver: r,
		logger:   logger.With().Str("overlay", "animation").Logger(),
		status:   AnimationStatus{State: AnimationIdle, Volume: command.DefaultVolume},
	}
}

// Events returns the overlay player's events.
func (a *Animation) Events() <-chan player.Event { return a.player.Events() }

// Apply moves the overlay to the given snapshot. Repeated snapshots are
// no-ops; a volume change never restarts playback.
func (a *Animation) Apply(ctx context.Context, name string, volume float64) {
	a.mu.Lock()
	volumeChanged := !a.applied || a.status.Volume != volume
	nameChanged := !a.applied || a.status.VideoName != name
	a.applied = true
	a.status.Volume = volume
	if nameChanged {
		a.status.VideoName = name
		a.status.Path = ""
	}
	a.mu.Unlock()

	if volumeChanged {
		a.player.SetVolume(volume)
	}
	if !nameChanged {
		return
	}

	if name == "" {
		a.player.Stop()
		a.setState(AnimationIdle, "")
		return
	}

	a.setState(AnimationLoading, "")
	if a.resolver == nil {
		a.setState(AnimationNotFound, "")
		return
	}
	resolved, err := a.resolver.Resolve(ctx, name)
	if err != nil {
		a.player.Stop()
		if errors.Is(err, media.ErrNotFound) {
			a.logger.Warn().Str(log.FieldVideoName, name).Msg("animation video not found")
			a.setState(AnimationNotFound, "")
			return
		}
		a.logger.Error().Err(err).Str(log.FieldVideoName, name).Msg("failed to resolve animation video")
		a.setState(AnimationError, "")
		return
	}

	if err := a.player.Play(resolved.AbsolutePath); err != nil {
		a.logger.Error().Err(err).Str(log.FieldVideoName, name).Msg("failed to start animation player")
		a.setState(AnimationError, resolved.AbsolutePath)
		return
	}
	a.logger.Info().
		Str(log.FieldEvent, "animation.play").
		Str(log.FieldVideoName, resolved.DisplayName).
		Float64(log.FieldVolume, volume).
		Msg("playing animation")
	a.setState(AnimationPlaying, resolved.AbsolutePath)
}

// HandleEvent folds overlay player events into the status.
func (a *Animation) HandleEvent(ev player.Event) {
	a.mu.Lock()
	current := a.status.State == AnimationPlaying && a.status.Path == ev.URL
	a.mu.Unlock()
	if !current {
		return
	}
	switch ev.Kind {
	case player.EventError:
		a.logger.Warn().Err(ev.Err).Msg("animation player failed")
		a.setState(AnimationError, ev.URL)
	case player.EventEnded:
		a.setState(AnimationIdle, "")
	}
}

func (a *Animation) setState(state AnimationState, path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status.State = state
	a.status.Path = path
}

// Status returns a snapshot.
func (a *Animation) Status() AnimationStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Close releases the overlay player.
func (a *Animation) Close() {
	a.player.Close()
}
