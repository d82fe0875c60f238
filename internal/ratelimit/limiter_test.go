// SPDX-License-Identifier: MIT

package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func testConfig() Config {
	return Config{
		GlobalRate:        100,
		GlobalBurst:       200,
		PerRequesterRate:  100,
		PerRequesterBurst: 200,
		KindRates:         map[string]rate.Limit{"stream": 100},
		KindBurst:         map[string]int{"stream": 200},
		CleanupInterval:   time.Minute,
	}
}

// frozen pins the limiter clock so token refill never interferes.
func frozen(l *Limiter, at time.Time) *time.Time {
	now := at
	l.now = func() time.Time { return now }
	l.lastCleanup = at
	return &now
}

func countAllowed(l *Limiter, n int, requester, kind string) int {
	allowed := 0
	for i := 0; i < n; i++ {
		if l.Allow(requester, kind) {
			allowed++
		}
	}
	return allowed
}

func TestLimiterGlobal(t *testing.T) {
	cfg := testConfig()
	cfg.GlobalRate, cfg.GlobalBurst = 1, 20
	l := New(cfg)
	frozen(l, time.Unix(1000, 0))

	assert.Equal(t, 20, countAllowed(l, 25, "192.168.1.1", "stream"))
}

func TestLimiterPerKind(t *testing.T) {
	cfg := testConfig()
	cfg.KindRates = map[string]rate.Limit{"remote": 1}
	cfg.KindBurst = map[string]int{"remote": 3}
	l := New(cfg)
	frozen(l, time.Unix(1000, 0))

	assert.Equal(t, 3, countAllowed(l, 10, "192.168.1.2", "remote"))
	assert.Equal(t, 10, countAllowed(l, 10, "192.168.1.2", "stream"), "unconfigured kinds are not limited per kind")
}

func TestLimiterPerRequester(t *testing.T) {
	cfg := testConfig()
	cfg.PerRequesterRate, cfg.PerRequesterBurst = 1, 5
	l := New(cfg)
	now := frozen(l, time.Unix(1000, 0))

	assert.Equal(t, 5, countAllowed(l, 10, "192.168.1.3", "stream"))
	assert.Equal(t, 5, countAllowed(l, 10, "192.168.1.4", "stream"), "requesters are isolated")

	*now = now.Add(2 * time.Second)
	assert.Equal(t, 2, countAllowed(l, 10, "192.168.1.3", "stream"), "tokens refill at the configured rate")
}

func TestLimiterCleanupDropsIdleRequesters(t *testing.T) {
	l := New(testConfig())
	now := frozen(l, time.Unix(1000, 0))

	l.Allow("10.0.0.1", "stream")
	*now = now.Add(30 * time.Second)
	l.Allow("10.0.0.2", "stream")
	assert.Equal(t, 2, l.Requesters())

	*now = now.Add(40 * time.Second)
	l.Allow("10.0.0.3", "stream")
	assert.Equal(t, 2, l.Requesters(), "10.0.0.1 was idle for a full interval")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/trigger", nil)
	req.RemoteAddr = "192.168.1.50:41234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "192.168.1.50", ClientIP(req))

	req.RemoteAddr = "not-an-addr"
	assert.Equal(t, "not-an-addr", ClientIP(req))
}
