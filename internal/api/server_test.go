// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mokrovi/backServ/internal/bus"
	"github.com/Mokrovi/backServ/internal/config"
	"github.com/Mokrovi/backServ/internal/health"
	"github.com/Mokrovi/backServ/internal/intent"
	"github.com/Mokrovi/backServ/internal/media"
	"github.com/Mokrovi/backServ/internal/notify"
	"github.com/Mokrovi/backServ/internal/resilience"
	"github.com/Mokrovi/backServ/internal/session"
	"github.com/Mokrovi/backServ/internal/surface"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type fakeLauncher struct {
	mu        sync.Mutex
	streams   []surface.StreamLaunch
	remotes   []string
	streamErr error
	remoteErr error
}

func (l *fakeLauncher) LaunchStream(_ context.Context, req surface.StreamLaunch) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.streamErr != nil {
		return l.streamErr
	}
	l.streams = append(l.streams, req)
	return nil
}

func (l *fakeLauncher) LaunchRemote(_ context.Context, requester string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remoteErr != nil {
		return l.remoteErr
	}
	l.remotes = append(l.remotes, requester)
	return nil
}

func (l *fakeLauncher) launches() []surface.StreamLaunch {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]surface.StreamLaunch(nil), l.streams...)
}

func (l *fakeLauncher) remoteLaunches() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.remotes...)
}

type fixture struct {
	t        *testing.T
	bus      *bus.Bus
	flags    *bus.Flags
	launcher *fakeLauncher
	ctrl     *session.Controller
	intent   *intent.Store
	notes    *notify.Store
	root     string
	srv      *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		bus:      bus.New(bus.WithBuffer(32)),
		flags:    &bus.Flags{},
		launcher: &fakeLauncher{},
		root:     t.TempDir(),
	}
	notes, err := notify.Open(filepath.Join(t.TempDir(), "notifications.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = notes.Close() })
	f.notes = notes

	ctrl, err := session.NewController(session.Config{
		Bus:          f.bus,
		Flags:        f.flags,
		Launcher:     f.launcher,
		Notifier:     notes,
		Scheduler:    resilience.NewManualScheduler(time.Unix(0, 0)),
		StartTimeout: 10 * time.Second,
	})
	require.NoError(t, err)
	f.ctrl = ctrl

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	f.intent = intent.NewStore(f.bus, nil)
	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewDirsChecker("media_roots", []string{f.root}))

	cfg := config.AppConfig{
		Version: "test",
		API:     config.APISettings{ListenAddr: ":8080"},
	}
	srv, err := New(cfg, Deps{
		Controller:    ctrl,
		Remote:        session.NewRemoteController(f.bus, f.flags, f.launcher, notes),
		Intent:        f.intent,
		Videos:        media.NewResolver([]string{filepath.Join(f.root, "Movies"), f.root}, media.DefaultMaxDepth),
		Flags:         f.flags,
		Notifications: notes,
		Health:        hm,
	})
	require.NoError(t, err)
	f.srv = srv
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	f.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "192.168.1.20:51234"
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

// activate simulates the stream surface coming up.
func (f *fixture) activate(id string) {
	f.t.Helper()
	f.flags.Set(bus.SurfaceStream, true)
	f.bus.Publish(bus.SurfaceStateChanged{Surface: bus.SurfaceStream, Active: true, ID: id})
	require.Eventually(f.t, func() bool {
		return f.ctrl.Status().State == session.StateActive
	}, waitFor, tick)
}

func (f *fixture) writeVideo(rel string) {
	f.t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(f.t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(config.AppConfig{}, Deps{})
	require.ErrorIs(t, err, ErrMissingDependency)
}

func TestStream_StartThenRedirect(t *testing.T) {
	f := newFixture(t)
	updates := f.bus.Subscribe(context.Background(), bus.KindUpdateStreamURLs)
	defer func() { _ = updates.Close() }()

	body := `{"external_url":"rtsp://a","local_url":"rtsp://b"}`
	w := f.do(http.MethodPost, "/stream", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	want := []surface.StreamLaunch{{Primary: "rtsp://a", Fallback: "rtsp://b", Requester: "192.168.1.20"}}
	if diff := cmp.Diff(want, f.launcher.launches()); diff != "" {
		t.Fatalf("launches mismatch (-want +got):\n%s", diff)
	}

	f.activate("s1")
	w = f.do(http.MethodPost, "/stream", body)
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case sig := <-updates.C():
		assert.Equal(t, bus.UpdateStreamURLs{Primary: "rtsp://a", Fallback: "rtsp://b"}, sig)
	case <-time.After(waitFor):
		t.Fatal("no redirect signal")
	}
	assert.Len(t, f.launcher.launches(), 1, "an active surface must not be launched twice")
}

func TestStream_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty body", body: "", want: "Empty request body."},
		{name: "no urls", body: `{}`, want: "No stream URL found in request body."},
		{name: "blank urls", body: `{"local_url":"","external_url":"  "}`, want: "No stream URL found in request body."},
		{name: "malformed json", body: `{"external_url":`, want: "Malformed request body."},
		{name: "wrong type", body: `{"external_url":42}`, want: "Malformed request body."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(http.MethodPost, "/stream", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			assert.Empty(t, f.launcher.launches())
		})
	}
}

func TestStream_LaunchFailureStillAnswersOK(t *testing.T) {
	f := newFixture(t)
	f.launcher.streamErr = surface.ErrPlayerUnavailable

	w := f.do(http.MethodPost, "/stream", `{"local_url":"rtsp://cam"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	list, err := f.notes.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, notify.KindStream, list[0].Kind)
	assert.Equal(t, "rtsp://cam", list[0].FallbackURL)
}

func TestToggleStream(t *testing.T) {
	f := newFixture(t)

	// Nothing to start: acknowledged anyway.
	w := f.do(http.MethodGet, "/toggle-stream", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Signal received, toggling local stream.", w.Body.String())
	assert.Empty(t, f.launcher.launches())

	w = f.do(http.MethodGet, "/toggle-stream?url=rtsp%3A%2F%2Flocal", "")
	require.Equal(t, http.StatusOK, w.Code)
	launches := f.launcher.launches()
	require.Len(t, launches, 1)
	assert.Equal(t, "rtsp://local", launches[0].Primary)
	assert.Empty(t, launches[0].Fallback)

	f.activate("s1")
	closes := f.bus.Subscribe(context.Background(), bus.KindCloseStreamSurface)
	defer func() { _ = closes.Close() }()

	w = f.do(http.MethodGet, "/toggle-stream", "")
	require.Equal(t, http.StatusOK, w.Code)
	select {
	case sig := <-closes.C():
		assert.Equal(t, bus.CloseStreamSurface{}, sig)
	case <-time.After(waitFor):
		t.Fatal("no close signal")
	}
}

func TestTrigger(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/trigger", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Remote stream started.", w.Body.String())
	assert.Equal(t, []string{"192.168.1.20"}, f.launcher.remoteLaunches())

	f.flags.Set(bus.SurfaceRemote, true)
	closes := f.bus.Subscribe(context.Background(), bus.KindCloseRemoteSurface)
	defer func() { _ = closes.Close() }()

	w = f.do(http.MethodPost, "/trigger", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Remote stream stopped.", w.Body.String())
	select {
	case <-closes.C():
	case <-time.After(waitFor):
		t.Fatal("no close signal")
	}
}

func TestTrigger_LaunchFailure(t *testing.T) {
	f := newFixture(t)
	f.launcher.remoteErr = surface.ErrPlayerUnavailable

	w := f.do(http.MethodPost, "/trigger", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server error: Could not start remote view. player unavailable", w.Body.String())
}

func TestTrigger_WhileRemoteStartingIsNoop(t *testing.T) {
	f := newFixture(t)
	f.launcher.remoteErr = fmt.Errorf("launch remote: %w", surface.ErrSurfaceBusy)

	w := f.do(http.MethodPost, "/trigger", "")
	require.Equal(t, http.StatusOK, w.Code)

	pending, err := f.notes.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending, "a busy remote view must not post a notification")
}

func TestTrigger_WrongMethod(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/trigger", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method Not Allowed", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, f.launcher.remoteLaunches())
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{"/stream", "/anything"} {
		w := f.do(http.MethodOptions, target, "")
		assert.Equal(t, http.StatusOK, w.Code, target)
		assert.Empty(t, w.Body.String(), target)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS, DELETE", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	}
}

func TestVideos(t *testing.T) {
	f := newFixture(t)
	f.writeVideo("Movies/b.mp4")
	f.writeVideo("a.MKV")
	f.writeVideo("notes.txt")
	f.writeVideo(".hidden/c.mp4")

	w := f.do(http.MethodGet, "/videos", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got []media.Video
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	want := []media.Video{{Name: "a.MKV"}, {Name: "b.mp4"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("videos mismatch (-want +got):\n%s", diff)
	}
}

func TestVideos_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/videos", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAnimationVolume_ReadBackAfterVideos(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/animation-volume", `{"volume":0.5}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodGet, "/videos", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.InDelta(t, 0.5, f.intent.Get().Volume, 1e-9)

	w = f.do(http.MethodGet, "/internal/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.InDelta(t, 0.5, st.Intent.Volume, 1e-9)
}

func TestAnimationVolume_DefaultsAndClamps(t *testing.T) {
	f := newFixture(t)

	f.do(http.MethodPost, "/animation-volume", `{"volume":0.2}`)
	w := f.do(http.MethodPost, "/animation-volume", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 1.0, f.intent.Get().Volume, 1e-9)

	f.do(http.MethodPost, "/animation-volume", `{"volume":7}`)
	assert.InDelta(t, 1.0, f.intent.Get().Volume, 1e-9)
	f.do(http.MethodPost, "/animation-volume", `{"volume":-1}`)
	assert.InDelta(t, 0.0, f.intent.Get().Volume, 1e-9)

	w = f.do(http.MethodPost, "/animation-volume", `{"volume":"loud"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlayAndStopAnimation(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/play-animation", `{"video_name":"intro.mp4"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "intro.mp4", f.intent.Get().VideoName)

	for _, body := range []string{"", `{}`, `{"video_name":"  "}`} {
		w = f.do(http.MethodPost, "/play-animation", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "video_name is required.", w.Body.String())
	}
	assert.Equal(t, "intro.mp4", f.intent.Get().VideoName)

	w = f.do(http.MethodPost, "/stop-animation", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.intent.Get().VideoName)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/stream", `{"external_url":"rtsp://a"}`)

	w := f.do(http.MethodGet, "/internal/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.NotNil(t, st.Version)
	assert.Equal(t, "test", *st.Version)
	assert.Equal(t, ControllerStatusStateSurfaceStarting, st.Controller.State)
	assert.False(t, st.Controller.PendingRequest)
	assert.False(t, st.Flags.StreamActive)
	assert.True(t, strings.HasSuffix(st.Address, ":8080"), st.Address)
	assert.Nil(t, st.Host)
}

func TestNotifications_LaunchAndDismiss(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stream, err := f.notes.Post(ctx, notify.Notification{Kind: notify.KindStream, PrimaryURL: "rtsp://a", Requester: "10.0.0.2"})
	require.NoError(t, err)
	remote, err := f.notes.Post(ctx, notify.Notification{Kind: notify.KindRemote, Requester: "10.0.0.3"})
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/internal/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	for _, n := range list {
		if n.Id == stream.ID {
			require.NotNil(t, n.PrimaryUrl)
			assert.Equal(t, "rtsp://a", *n.PrimaryUrl)
			assert.Nil(t, n.FallbackUrl)
		}
	}

	w = f.do(http.MethodPost, "/internal/notifications/"+stream.ID+"/launch", "")
	require.Equal(t, http.StatusOK, w.Code)
	var lr LaunchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lr))
	assert.Equal(t, LaunchResultOutcomeLaunched, lr.Outcome)
	assert.Equal(t, NotificationKindStream, lr.Kind)
	assert.Equal(t, stream.ID, lr.Id)
	launches := f.launcher.launches()
	require.Len(t, launches, 1)
	assert.Equal(t, "rtsp://a", launches[0].Primary)
	assert.Equal(t, "10.0.0.2", launches[0].Requester)

	w = f.do(http.MethodPost, "/internal/notifications/"+remote.ID+"/launch", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"10.0.0.3"}, f.launcher.remoteLaunches())

	w = f.do(http.MethodGet, "/internal/notifications", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list, "launched notifications are no longer pending")

	third, err := f.notes.Post(ctx, notify.Notification{Kind: notify.KindRemote, Requester: "10.0.0.4"})
	require.NoError(t, err)
	w = f.do(http.MethodDelete, "/internal/notifications/"+third.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(http.MethodDelete, "/internal/notifications/"+third.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(http.MethodPost, "/internal/notifications/missing/launch", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotifications_RemoteLaunchFailure(t *testing.T) {
	f := newFixture(t)
	n, err := f.notes.Post(context.Background(), notify.Notification{Kind: notify.KindRemote, Requester: "10.0.0.3"})
	require.NoError(t, err)
	f.launcher.remoteErr = errors.New("no display")

	w := f.do(http.MethodPost, "/internal/notifications/"+n.ID+"/launch", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	got, err := f.notes.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LaunchedAt)
}

func TestNotifications_StreamRelaunchFailureKeepsSingleNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n, err := f.notes.Post(ctx, notify.Notification{Kind: notify.KindStream, PrimaryURL: "rtsp://a", Requester: "10.0.0.2"})
	require.NoError(t, err)
	f.launcher.mu.Lock()
	f.launcher.streamErr = surface.ErrPlayerUnavailable
	f.launcher.mu.Unlock()

	w := f.do(http.MethodPost, "/internal/notifications/"+n.ID+"/launch", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "player unavailable")

	list, err := f.notes.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "a failed relaunch must not post another notification")
	assert.Equal(t, n.ID, list[0].ID)
	assert.Nil(t, list[0].LaunchedAt)
	assert.Equal(t, session.StateNoSurface, f.ctrl.Status().State)
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var ready health.ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.True(t, ready.Ready)
}

type panickingLister struct{}

func (panickingLister) ListAvailable(context.Context) ([]media.Video, error) {
	panic("scan bug")
}

type failingLister struct{}

func (failingLister) ListAvailable(context.Context) ([]media.Video, error) {
	return nil, errors.New("permission denied")
}

func TestHandlerPanicDoesNotStopServer(t *testing.T) {
	f := newFixture(t)
	f.srv.deps.Videos = panickingLister{}
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/videos")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Post(ts.URL+"/stop-animation", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVideos_ListFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.deps.Videos = failingLister{}
	w := f.do(http.MethodGet, "/videos", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server error.", w.Body.String())
}
