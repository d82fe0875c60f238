// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package intent holds the animation playback intent shared between the
// command layer and the stream surface.
package intent

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/bus"
	"github.com/Mokrovi/backServ/internal/command"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/metrics"
)

// Intent is what the animation overlay should be doing.
type Intent struct {
	VideoName string  `json:"video_name,omitempty"`
	Volume    float64 `json:"volume"`
}

// Default is the intent before any command arrived.
func Default() Intent {
	return Intent{Volume: command.DefaultVolume}
}

// Signal converts the intent to its bus notification.
func (i Intent) Signal() bus.IntentChanged {
	return bus.IntentChanged{VideoName: i.VideoName, Volume: i.Volume}
}

// Persister stores the intent across restarts.
type Persister interface {
	Load(ctx context.Context) (Intent, bool, error)
	Save(ctx context.Context, in Intent) error
	Close() error
}

// Store is the process-wide intent. Every change is published as a full
// snapshot while the lock is held, so subscribers see changes in write order.
// The bus drops signals for a full subscriber, so consumers treat
// IntentChanged as a prompt to call Get.
type Store struct {
	mu      sync.Mutex
	cur     Intent
	pub     bus.Publisher
	persist Persister
	logger  zerolog.Logger
}

// NewStore creates a store. persist may be nil.
func NewStore(pub bus.Publisher, persist Persister) *Store {
	return &Store{
		cur:     Default(),
		pub:     pub,
		persist: persist,
		logger:  log.WithComponent("intent"),
	}
}

// Restore loads the persisted intent, if any. It does not publish.
func (s *Store) Restore(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	in, ok, err := s.persist.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	in.Volume = command.ClampVolume(in.Volume)
	s.mu.Lock()
	s.cur = in
	s.mu.Unlock()
	s.logger.Info().
		Str(log.FieldVideoName, in.VideoName).
		Float64(log.FieldVolume, in.Volume).
		Msg("restored animation intent")
	return nil
}

// Get returns the current intent.
func (s *Store) Get() Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// SetVideo selects a video name.
func (s *Store) SetVideo(name string) Intent {
	return s.update("video", func(in *Intent) bool {
		in.VideoName = name
		return true
	})
}

// ClearVideo removes the video name.
func (s *Store) ClearVideo() Intent {
	return s.update("clear", func(in *Intent) bool {
		in.VideoName = ""
		return true
	})
}

// SetVolume stores a clamped volume level.
func (s *Store) SetVolume(level float64) Intent {
	return s.update("volume", func(in *Intent) bool {
		in.Volume = command.ClampVolume(level)
		return true
	})
}

// SelectIfEmpty sets name only when no video is selected. It reports whether
// the intent changed.
func (s *Store) SelectIfEmpty(name string) (Intent, bool) {
	changed := false
	in := s.update("video", func(in *Intent) bool {
		if in.VideoName != "" {
			return false
		}
		in.VideoName = name
		changed = true
		return true
	})
	return in, changed
}

func (s *Store) update(field string, fn func(*Intent) bool) Intent {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	if !fn(&next) {
		return s.cur
	}
	s.cur = next
	metrics.RecordIntentChange(field)

	if s.pub != nil {
		s.pub.Publish(next.Signal())
	}
	if s.persist != nil {
		if err := s.persist.Save(context.Background(), next); err != nil {
			s.logger.Warn().Err(err).Msg("failed to persist animation intent")
		}
	}
	s.logger.Debug().
		Str(log.FieldEvent, "intent.changed").
		Str(log.FieldVideoName, next.VideoName).
		Float64(log.FieldVolume, next.Volume).
		Msg("animation intent changed")
	return next
}
