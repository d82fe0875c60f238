// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus is the in-process signal channel between the command layer and
// the surfaces. Sends never block and are dropped when nobody listens.
package bus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/metrics"
)

const (
	defaultBuffer = 16
	dropLogEvery  = 100
)

// Drop reasons reported on backserv_bus_dropped_total.
const (
	DropNoSubscriber = "no_subscriber"
	DropFull         = "full"
	DropClosed       = "closed"
)

var dropCount atomic.Uint64

// Publisher is the sending half of the bus.
type Publisher interface {
	Publish(sig Signal) bool
}

// Bus is a typed, non-blocking broadcast channel.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Kind][]*Subscription
	closed bool
	buffer int
	mirror func(Signal)

	closeOnce sync.Once
}

// Option configures a Bus.
type Option func(*Bus)

// WithBuffer sets the per-subscription channel capacity.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[Kind][]*Subscription),
		buffer: defaultBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetMirror installs a callback that sees every locally originated signal
// after delivery. It must not block.
func (b *Bus) SetMirror(fn func(Signal)) {
	b.mu.Lock()
	b.mirror = fn
	b.mu.Unlock()
}

// Publish delivers sig to every current subscriber of its kind and reports
// whether at least one received it.
func (b *Bus) Publish(sig Signal) bool {
	return b.publish(sig, true)
}

// Deliver is Publish without mirroring, used for signals that arrived from
// another process.
func (b *Bus) Deliver(sig Signal) bool {
	return b.publish(sig, false)
}

func (b *Bus) publish(sig Signal, mirror bool) bool {
	if sig == nil {
		return false
	}
	kind := sig.Kind()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		b.drop(kind, DropClosed)
		return false
	}
	subs := b.subs[kind]
	delivered := 0
	for _, s := range subs {
		select {
		case s.ch <- sig:
			delivered++
		default:
			b.drop(kind, DropFull)
		}
	}
	fn := b.mirror
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.drop(kind, DropNoSubscriber)
	}
	if delivered > 0 {
		metrics.IncBusPublished(string(kind))
	}
	if mirror && fn != nil {
		fn(sig)
	}
	return delivered > 0
}

func (b *Bus) drop(kind Kind, reason string) {
	metrics.IncBusDropReason(string(kind), reason)
	if reason == DropNoSubscriber {
		// Expected whenever no surface is up.
		return
	}
	count := dropCount.Add(1)
	if count%dropLogEvery == 1 {
		logger := log.WithComponent("bus")
		logger.Warn().
			Str(log.FieldEvent, "bus.dropped").
			Str("kind", string(kind)).
			Str("reason", reason).
			Uint64("dropped", count).
			Msg("signal dropped")
	}
}

// Subscribe registers for the given kinds. The subscription ends when ctx is
// done or Close is called; either closes the channel.
func (b *Bus) Subscribe(ctx context.Context, kinds ...Kind) *Subscription {
	s := &Subscription{
		b:     b,
		kinds: append([]Kind(nil), kinds...),
		ch:    make(chan Signal, b.buffer),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.closeOnce.Do(func() { close(s.ch) })
		return s
	}
	for _, k := range s.kinds {
		b.subs[k] = append(b.subs[k], s)
	}
	b.mu.Unlock()

	if ctx != nil {
		s.stop = context.AfterFunc(ctx, func() { _ = s.Close() })
	}
	return s
}

// hasSubscribers reports whether any subscription listens for kind.
func (b *Bus) hasSubscribers(kind Kind) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind]) > 0
}

// Close ends all subscriptions. Later publishes are dropped.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		var all []*Subscription
		seen := make(map[*Subscription]struct{})
		for _, lst := range b.subs {
			for _, s := range lst {
				if _, ok := seen[s]; !ok {
					seen[s] = struct{}{}
					all = append(all, s)
				}
			}
		}
		b.subs = make(map[Kind][]*Subscription)
		b.mu.Unlock()

		for _, s := range all {
			s.closeChan()
		}
	})
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range s.kinds {
		lst := b.subs[k]
		out := lst[:0]
		for _, c := range lst {
			if c != s {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(b.subs, k)
		} else {
			b.subs[k] = out
		}
	}
	// Closed under the write lock so no publisher is mid-send.
	s.closeChan()
}

// Subscription is one receiver registration.
type Subscription struct {
	b     *Bus
	kinds []Kind
	ch    chan Signal
	stop  func() bool

	closeOnce sync.Once
}

// C returns the receive channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Signal {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	if s.stop != nil {
		s.stop()
	}
	s.b.remove(s)
	return nil
}

func (s *Subscription) closeChan() {
	s.closeOnce.Do(func() { close(s.ch) })
}

var _ Publisher = (*Bus)(nil)
