// SPDX-License-Identifier: MIT
package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mokrovi/backServ/internal/config"
	"github.com/Mokrovi/backServ/internal/health"
	"github.com/Mokrovi/backServ/internal/notify"
)

func testAppConfig(t *testing.T) config.AppConfig {
	t.Helper()
	dataDir := t.TempDir()
	mediaRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(mediaRoot, "Movies"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(mediaRoot, "Movies", "intro.mp4"), []byte("x"), 0o600))

	return config.AppConfig{
		Version:  "test-1.0.0",
		DataDir:  dataDir,
		LogLevel: "info",
		API:      config.APISettings{ListenAddr: "127.0.0.1:0", MaxConns: 16},
		Media:    config.MediaSettings{Roots: []string{filepath.Join(mediaRoot, "Movies")}, MaxDepth: 3},
		Player:   config.PlayerSettings{Command: "backserv-test-player-does-not-exist"},
		Stream: config.StreamSettings{
			MaxErrors:    3,
			SettleDelay:  10 * time.Millisecond,
			CloseGrace:   10 * time.Millisecond,
			StartTimeout: time.Second,
		},
		Remote: config.RemoteSettings{
			RTSPPort:       8554,
			RTSPPath:       "/live",
			StatusPort:     8080,
			StatusPath:     "/status",
			StatusInterval: time.Second,
			StatusTimeout:  time.Second,
		},
		Launch:        config.LaunchSettings{PerRequesterRate: 10, Burst: 10, BreakerThreshold: 3, BreakerReset: time.Second},
		State:         config.StateSettings{Backend: config.StateBackendMemory},
		Notifications: config.NotificationSettings{Path: filepath.Join(dataDir, "notifications.db")},
		Server:        config.ServerSettings{ShutdownTimeout: 3 * time.Second},
	}
}

type runningDaemon struct {
	rt     *Runtime
	base   string
	client *http.Client
	cancel context.CancelFunc
	done   chan error
}

func startDaemon(t *testing.T, cfg config.AppConfig) *runningDaemon {
	t.Helper()
	rt, err := Bootstrap(context.Background(), cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	d := &runningDaemon{
		rt:     rt,
		client: &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}},
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { d.done <- rt.Run(ctx) }()
	d.base = "http://" + waitForAPIAddr(t, rt.Manager)

	t.Cleanup(d.stop)
	return d
}

func (d *runningDaemon) stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.cancel = nil
	select {
	case <-d.done:
	case <-time.After(10 * time.Second):
	}
	_ = d.rt.Close()
}

func (d *runningDaemon) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, d.base+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := d.client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func (d *runningDaemon) waitReady(t *testing.T) health.ReadinessResponse {
	t.Helper()
	var ready health.ReadinessResponse
	require.Eventually(t, func() bool {
		code, body := d.do(t, http.MethodGet, "/readyz", "")
		if code != http.StatusOK {
			return false
		}
		return json.Unmarshal([]byte(body), &ready) == nil
	}, 3*time.Second, 20*time.Millisecond)
	return ready
}

func TestBootstrap_ServesCommandRoutes(t *testing.T) {
	d := startDaemon(t, testAppConfig(t))

	ready := d.waitReady(t)
	assert.True(t, ready.Ready)
	assert.Contains(t, ready.Checks, "media_roots")
	assert.Contains(t, ready.Checks, "notifications")
	assert.Equal(t, health.StatusHealthy, ready.Checks["surface_host"].Status)

	code, body := d.do(t, http.MethodGet, "/videos", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"name":"intro.mp4"}]`, body)

	// No player binary: the launch becomes a notification and the caller still gets OK.
	code, body = d.do(t, http.MethodPost, "/stream", `{"external_url":"rtsp://cam/main","local_url":"rtsp://10.0.0.2/main"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)

	code, body = d.do(t, http.MethodGet, "/internal/notifications", "")
	require.Equal(t, http.StatusOK, code)
	var notes []notify.Notification
	require.NoError(t, json.Unmarshal([]byte(body), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, notify.KindStream, notes[0].Kind)
	assert.Equal(t, "rtsp://cam/main", notes[0].PrimaryURL)
}

func TestBootstrap_ShutdownReleasesStores(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.State = config.StateSettings{Backend: config.StateBackendBadger, Path: filepath.Join(cfg.DataDir, "state")}
	d := startDaemon(t, cfg)
	d.waitReady(t)

	code, _ := d.do(t, http.MethodPost, "/play-animation", `{"video_name":"intro.mp4"}`)
	require.Equal(t, http.StatusOK, code)
	d.stop()

	// The badger directory lock is released, so a second daemon can open it
	// and restores the intent.
	d2 := startDaemon(t, cfg)
	d2.waitReady(t)
	code, body := d2.do(t, http.MethodGet, "/internal/status", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"intro.mp4"`)
}

func TestBootstrap_RedisRelay(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testAppConfig(t)
	cfg.Relay = config.RelaySettings{RedisAddr: mr.Addr(), Channel: "backserv-test"}

	d := startDaemon(t, cfg)
	ready := d.waitReady(t)
	require.Contains(t, ready.Checks, "relay")
	assert.Equal(t, health.StatusHealthy, ready.Checks["relay"].Status)
}

func TestBootstrap_RelayUnreachableIsSkipped(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Relay = config.RelaySettings{RedisAddr: reserveListenAddr(t), Channel: "backserv-test"}

	rt, err := Bootstrap(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	resp := rt.Health.Ready(context.Background())
	assert.NotContains(t, resp.Checks, "relay")
}

func TestBootstrap_BadNotificationPath(t *testing.T) {
	cfg := testAppConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfg.Notifications.Path = filepath.Join(blocker, "notifications.db")

	_, err := Bootstrap(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open notification store")
}
