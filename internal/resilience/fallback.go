// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/metrics"
)

const (
	// DefaultMaxErrors is the error budget of one playback session.
	DefaultMaxErrors = 3
	// DefaultSettleDelay separates an error from the next playback attempt.
	DefaultSettleDelay = time.Second
)

var (
	// ErrNoSource is the terminal reason when neither URL was provided.
	ErrNoSource = errors.New("no stream source available")
	// ErrTooManyErrors is the terminal reason after too many playback errors.
	ErrTooManyErrors = errors.New("playback error budget exhausted")
)

// Phase is the lifecycle position of a FallbackSession.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePlaying   Phase = "playing"
	PhaseSettling  Phase = "settling"
	PhaseTerminal  Phase = "terminal"
	PhaseCompleted Phase = "completed"
	PhaseStopped   Phase = "stopped"
)

// Callbacks receive the session's decisions. They run while the session lock
// is held and must not call back into the session.
type Callbacks struct {
	// Play begins playback of url, replacing whatever is playing.
	Play func(url string)
	// Terminal reports that the session gave up.
	Terminal func(reason error)
	// Completed reports a natural end of stream.
	Completed func()
}

// FallbackConfig configures a FallbackSession.
type FallbackConfig struct {
	Primary     string
	Fallback    string
	MaxErrors   int
	SettleDelay time.Duration
	Scheduler   Scheduler
	Logger      *zerolog.Logger
}

// Status is a point-in-time view of a session.
type Status struct {
	Phase        Phase  `json:"phase"`
	UsingPrimary bool   `json:"using_primary"`
	ErrorCount   int    `json:"error_count"`
	CurrentURL   string `json:"current_url,omitempty"`
}

// FallbackSession decides which source a stream surface plays: primary
// first, the fallback after a primary error, retries after the settle delay,
// and a terminal outcome once the error budget is spent.
type FallbackSession struct {
	mu           sync.Mutex
	primary      string
	fallback     string
	maxErrors    int
	settle       time.Duration
	sched        Scheduler
	cb           Callbacks
	logger       zerolog.Logger
	phase        Phase
	usingPrimary bool
	errorCount   int
	pending      Timer
	gen          uint64
}

// NewFallbackSession creates an idle session; call Start to begin.
func NewFallbackSession(cfg FallbackConfig, cb Callbacks) *FallbackSession {
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = DefaultMaxErrors
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler
	}
	logger := log.WithComponent("resilience")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &FallbackSession{
		primary:   cfg.Primary,
		fallback:  cfg.Fallback,
		maxErrors: cfg.MaxErrors,
		settle:    cfg.SettleDelay,
		sched:     cfg.Scheduler,
		cb:        cb,
		logger:    logger,
		phase:     PhaseIdle,
	}
}

// Start begins playback from the primary URL, or the fallback when there is
// no primary. Without either URL the session is terminal immediately.
func (s *FallbackSession) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseIdle {
		return
	}
	s.startLocked()
}

// Restart swaps the source pair and starts over with a fresh error budget.
// It is ignored once the session was stopped.
func (s *FallbackSession) Restart(primary, fallback string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseStopped {
		return
	}
	s.cancelPendingLocked()
	s.primary = primary
	s.fallback = fallback
	s.errorCount = 0
	s.logger.Info().
		Str(log.FieldEvent, "resilience.restart").
		Str(log.FieldPrimaryURL, primary).
		Str(log.FieldFallbackURL, fallback).
		Msg("restarting playback with new sources")
	s.startLocked()
}

func (s *FallbackSession) startLocked() {
	switch {
	case s.primary != "":
		s.usingPrimary = true
	case s.fallback != "":
		s.usingPrimary = false
	default:
		s.terminalLocked(ErrNoSource, "no_source")
		return
	}
	s.phase = PhasePlaying
	s.playLocked()
}

// OnError records a playback error and decides the next step.
func (s *FallbackSession) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePlaying && s.phase != PhaseSettling {
		return
	}

	s.errorCount++
	ev := s.logger.Warn().
		Err(err).
		Int(log.FieldErrorCount, s.errorCount).
		Bool("using_primary", s.usingPrimary)

	if s.errorCount >= s.maxErrors {
		ev.Str(log.FieldEvent, "resilience.error").Msg("playback error, budget exhausted")
		s.cancelPendingLocked()
		s.terminalLocked(ErrTooManyErrors, "max_errors")
		return
	}

	if s.usingPrimary && s.fallback != "" {
		s.usingPrimary = false
		metrics.IncStreamFailover()
		ev.Str(log.FieldEvent, "resilience.failover").Msg("switching to fallback source")
	} else {
		metrics.IncStreamRetry()
		ev.Str(log.FieldEvent, "resilience.retry").Msg("retrying current source")
	}

	s.cancelPendingLocked()
	s.phase = PhaseSettling
	gen := s.gen
	s.pending = s.sched.AfterFunc(s.settle, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen || s.phase != PhaseSettling {
			return
		}
		s.pending = nil
		s.phase = PhasePlaying
		s.playLocked()
	})
}

// OnReady marks a fully connected playback. It resets the error budget.
func (s *FallbackSession) OnReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePlaying {
		return
	}
	if s.errorCount > 0 {
		s.logger.Debug().
			Int(log.FieldErrorCount, s.errorCount).
			Msg("playback ready, error budget reset")
	}
	s.errorCount = 0
}

// OnBuffering is informational; it does not touch the error budget.
func (s *FallbackSession) OnBuffering() {}

// OnEnded reports a natural end of stream.
func (s *FallbackSession) OnEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePlaying {
		return
	}
	s.cancelPendingLocked()
	s.phase = PhaseCompleted
	s.logger.Info().Str(log.FieldEvent, "resilience.completed").Msg("stream ended")
	if s.cb.Completed != nil {
		s.cb.Completed()
	}
}

// Stop cancels pending work. No callback runs after Stop returns.
func (s *FallbackSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPendingLocked()
	s.phase = PhaseStopped
}

// Status returns a snapshot.
func (s *FallbackSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Phase:        s.phase,
		UsingPrimary: s.usingPrimary,
		ErrorCount:   s.errorCount,
		CurrentURL:   s.currentLocked(),
	}
}

func (s *FallbackSession) currentLocked() string {
	if s.usingPrimary {
		return s.primary
	}
	return s.fallback
}

func (s *FallbackSession) playLocked() {
	url := s.currentLocked()
	s.logger.Info().
		Str(log.FieldEvent, "resilience.play").
		Str(log.FieldSourceURL, url).
		Bool("using_primary", s.usingPrimary).
		Msg("starting playback")
	if s.cb.Play != nil {
		s.cb.Play(url)
	}
}

func (s *FallbackSession) terminalLocked(reason error, label string) {
	s.phase = PhaseTerminal
	metrics.RecordStreamTerminal(label)
	s.logger.Error().
		Err(reason).
		Str(log.FieldEvent, "resilience.terminal").
		Int(log.FieldErrorCount, s.errorCount).
		Msg("playback failed permanently")
	if s.cb.Terminal != nil {
		s.cb.Terminal(reason)
	}
}

func (s *FallbackSession) cancelPendingLocked() {
	s.gen++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}
