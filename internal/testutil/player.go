package testutil

import (
	"sync"

	"github.com/Mokrovi/backServ/internal/player"
)

// FakePlayer records Play/Stop/SetVolume calls and lets tests inject events.
type FakePlayer struct {
	mu      sync.Mutex
	plays   []string
	volumes []float64
	stops   int
	gen     uint64
	closed  bool
	playErr error
	events  chan player.Event
}

// NewFakePlayer returns a FakePlayer with a buffered event channel.
func NewFakePlayer() *FakePlayer {
	return &FakePlayer{events: make(chan player.Event, 64)}
}

// FailPlay makes every later Play return err.
func (f *FakePlayer) FailPlay(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playErr = err
}

func (f *FakePlayer) Play(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return player.ErrClosed
	}
	if f.playErr != nil {
		return f.playErr
	}
	f.gen++
	f.plays = append(f.plays, url)
	return nil
}

func (f *FakePlayer) SetVolume(level float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, level)
}

func (f *FakePlayer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *FakePlayer) Events() <-chan player.Event { return f.events }

func (f *FakePlayer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.events)
}

// Emit injects an event for the latest Play call. It is a no-op after Close.
func (f *FakePlayer) Emit(kind player.EventKind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	url := ""
	if len(f.plays) > 0 {
		url = f.plays[len(f.plays)-1]
	}
	f.events <- player.Event{Kind: kind, URL: url, Gen: f.gen, Err: err}
}

// EmitFor injects an event for an explicit generation.
func (f *FakePlayer) EmitFor(gen uint64, kind player.EventKind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.events <- player.Event{Kind: kind, Gen: gen, Err: err}
}

// Plays returns the URLs passed to Play, in order.
func (f *FakePlayer) Plays() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.plays...)
}

// Volumes returns the levels passed to SetVolume, in order.
func (f *FakePlayer) Volumes() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.volumes...)
}

// Stops returns how often Stop was called.
func (f *FakePlayer) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// Closed reports whether Close was called.
func (f *FakePlayer) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
