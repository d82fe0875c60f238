// SPDX-License-Identifier: MIT

// Package ratelimit throttles surface launches per requester and per
// surface kind.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backserv",
			Name:      "launch_ratelimit_exceeded_total",
			Help:      "Total surface launches rejected by the launch throttle",
		},
		[]string{"limit_type", "kind"},
	)
)

// Config holds launch throttling configuration
type Config struct {
	// Global limits
	GlobalRate  rate.Limit // launches per second
	GlobalBurst int

	// Per-requester limits
	PerRequesterRate  rate.Limit
	PerRequesterBurst int

	// Per-kind limits (stream, remote)
	KindRates map[string]rate.Limit
	KindBurst map[string]int

	// Idle requester limiters are dropped after this interval
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		GlobalRate:  10,
		GlobalBurst: 20,

		PerRequesterRate:  1,
		PerRequesterBurst: 5,

		KindRates: map[string]rate.Limit{
			"stream": 2,
			"remote": 1,
		},
		KindBurst: map[string]int{
			"stream": 5,
			"remote": 3,
		},

		CleanupInterval: 5 * time.Minute,
	}
}

type requesterLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter decides whether a launch may proceed
type Limiter struct {
	config Config

	global       *rate.Limiter
	perRequester map[string]*requesterLimiter
	perKind      map[string]*rate.Limiter
	mu           sync.Mutex

	now         func() time.Time
	lastCleanup time.Time
}

// New creates a new limiter with the given config
func New(config Config) *Limiter {
	l := &Limiter{
		config:       config,
		global:       rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perRequester: make(map[string]*requesterLimiter),
		perKind:      make(map[string]*rate.Limiter),
		now:          time.Now,
	}
	l.lastCleanup = l.now()

	for kind, kindRate := range config.KindRates {
		l.perKind[kind] = rate.NewLimiter(kindRate, config.KindBurst[kind])
	}

	return l
}

// Allow reports whether requester may launch a surface of kind.
// Global, per-kind and per-requester budgets must all allow it.
func (l *Limiter) Allow(requester, kind string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeCleanupLocked(now)

	if !l.global.AllowN(now, 1) {
		rateLimitExceeded.WithLabelValues("global", kind).Inc()
		return false
	}

	if kindLimiter, ok := l.perKind[kind]; ok && !kindLimiter.AllowN(now, 1) {
		rateLimitExceeded.WithLabelValues("per_kind", kind).Inc()
		return false
	}

	rl, ok := l.perRequester[requester]
	if !ok {
		rl = &requesterLimiter{limiter: rate.NewLimiter(l.config.PerRequesterRate, l.config.PerRequesterBurst)}
		l.perRequester[requester] = rl
	}
	rl.lastSeen = now
	if !rl.limiter.AllowN(now, 1) {
		rateLimitExceeded.WithLabelValues("per_requester", kind).Inc()
		return false
	}

	return true
}

// Requesters returns the number of tracked requester limiters.
func (l *Limiter) Requesters() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perRequester)
}

// maybeCleanupLocked drops requesters idle for longer than the cleanup interval.
func (l *Limiter) maybeCleanupLocked(now time.Time) {
	if l.config.CleanupInterval <= 0 || now.Sub(l.lastCleanup) < l.config.CleanupInterval {
		return
	}
	for key, rl := range l.perRequester {
		if now.Sub(rl.lastSeen) >= l.config.CleanupInterval {
			delete(l.perRequester, key)
		}
	}
	l.lastCleanup = now
}

// ClientIP returns the host part of the request's remote address.
// Forwarding headers are ignored: the service is reached directly on the LAN.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
