// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package surface

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Mokrovi/backServ/internal/bus"
	"github.com/Mokrovi/backServ/internal/intent"
	"github.com/Mokrovi/backServ/internal/media"
	"github.com/Mokrovi/backServ/internal/player"
	"github.com/Mokrovi/backServ/internal/resilience"
	"github.com/Mokrovi/backServ/internal/testutil"
)

var errSource = errors.New("connection refused")

func launchStream(t *testing.T, f *fixture, primary, fallback string) *testutil.FakePlayer {
	t.Helper()
	require.NoError(t, f.host.LaunchStream(context.Background(), StreamLaunch{Primary: primary, Fallback: fallback}))
	p := f.player(player.RoleStream, 0)
	require.Eventually(t, func() bool { return len(p.Plays()) == 1 }, waitFor, tick)
	require.True(t, f.flags.StreamActive())
	return p
}

func waitPending(t *testing.T, f *fixture, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.sched.Pending() == n }, waitFor, tick)
}

func TestStream_AnnouncesActivation(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFixture(t, nil)
	f.start()
	states := f.bus.Subscribe(context.Background(), bus.KindSurfaceStateChanged)

	p := launchStream(t, f, "rtsp://a", "rtsp://b")
	assert.Equal(t, []string{"rtsp://a"}, p.Plays())

	select {
	case sig := <-states.C():
		st := sig.(bus.SurfaceStateChanged)
		assert.Equal(t, bus.SurfaceStream, st.Surface)
		assert.True(t, st.Active)
		assert.NotEmpty(t, st.ID)
	case <-time.After(waitFor):
		t.Fatal("no activation announced")
	}
	_ = states.Close()
	f.stop()
}

func TestStream_FailoverRetryAndGracefulTerminalClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFixture(t, nil)
	f.start()
	p := launchStream(t, f, "rtsp://a", "rtsp://b")

	p.Emit(player.EventError, errSource)
	waitPending(t, f, 1)
	f.sched.Advance(time.Second)
	assert.Equal(t, []string{"rtsp://a", "rtsp://b"}, p.Plays())

	p.Emit(player.EventError, errSource)
	waitPending(t, f, 1)
	f.sched.Advance(time.Second)
	assert.Equal(t, []string{"rtsp://a", "rtsp://b", "rtsp://b"}, p.Plays())

	p.Emit(player.EventError, errSource)
	require.Eventually(t, func() bool {
		st := f.host.Status().Stream
		return st != nil && st.Closing && st.Playback.Phase == resilience.PhaseTerminal
	}, waitFor, tick)
	assert.Equal(t, 3, f.host.Status().Stream.Playback.ErrorCount)
	assert.True(t, f.flags.StreamActive(), "surface stays up during the grace period")

	f.sched.Advance(2 * time.Second)
	assert.True(t, f.flags.StreamActive())
	f.sched.Advance(time.Second)

	require.Eventually(t, func() bool { return !f.flags.StreamActive() }, waitFor, tick)
	assert.True(t, p.Closed())
	assert.Len(t, p.Plays(), 3, "no attempt after the terminal outcome")
	f.stop()
}

func TestStream_RedirectDuringGraceCancelsClose(t *testing.T) {
	f := newFixture(t, nil)
	f.start()
	require.NoError(t, f.host.LaunchStream(context.Background(), StreamLaunch{}))
	p := f.player(player.RoleStream, 0)

	require.Eventually(t, func() bool {
		st := f.host.Status().Stream
		return st != nil && st.Closing
	}, waitFor, tick)
	assert.Empty(t, p.Plays(), "no source, nothing to play")

	f.bus.Publish(bus.UpdateStreamURLs{Primary: "rtsp://c"})
	require.Eventually(t, func() bool { return len(p.Plays()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"rtsp://c"}, p.Plays())
	assert.Zero(t, f.sched.Pending())

	f.sched.Advance(time.Minute)
	assert.True(t, f.flags.StreamActive())
	assert.False(t, f.host.Status().Stream.Closing)
}

func TestStream_RedirectRestartsWithoutTeardown(t *testing.T) {
	f := newFixture(t, nil)
	f.start()
	p := launchStream(t, f, "rtsp://a", "rtsp://b")

	p.Emit(player.EventError, errSource)
	waitPending(t, f, 1)

	f.bus.Publish(bus.UpdateStreamURLs{Primary: "rtsp://c", Fallback: "rtsp://d"})
	require.Eventually(t, func() bool { return len(p.Plays()) == 2 }, waitFor, tick)
	assert.Equal(t, "rtsp://c", p.Plays()[1])

	f.sched.Advance(time.Minute)
	assert.Len(t, p.Plays(), 2, "settle timer of the previous pair was discarded")
	st := f.host.Status().Stream
	assert.Zero(t, st.Playback.ErrorCount)
	f.mu.Lock()
	assert.Len(t, f.players[player.RoleStream], 1, "no second surface")
	f.mu.Unlock()
}

func TestStream_EndOfStreamClosesImmediately(t *testing.T) {
	f := newFixture(t, nil)
	f.start()
	p := launchStream(t, f, "rtsp://a", "")

	p.Emit(player.EventEnded, nil)
	require.Eventually(t, func() bool { return !f.flags.StreamActive() }, waitFor, tick)
	assert.Zero(t, f.sched.Pending())
	require.Eventually(t, func() bool { return f.host.Status().Stream == nil }, waitFor, tick)
}

func TestStream_CloseSignal(t *testing.T) {
	f := newFixture(t, nil)
	f.start()
	states := f.bus.Subscribe(context.Background(), bus.KindSurfaceStateChanged)
	defer func() { _ = states.Close() }()
	launchStream(t, f, "rtsp://a", "")
	<-states.C()

	assert.True(t, f.bus.Publish(bus.CloseStreamSurface{}))
	select {
	case sig := <-states.C():
		assert.False(t, sig.(bus.SurfaceStateChanged).Active)
	case <-time.After(waitFor):
		t.Fatal("no deactivation announced")
	}
	assert.False(t, f.flags.StreamActive())
	assert.False(t, f.bus.Publish(bus.CloseStreamSurface{}), "closed surface still subscribed")

	require.Eventually(t, func() bool {
		return f.host.LaunchStream(context.Background(), StreamLaunch{Primary: "rtsp://b"}) == nil
	}, waitFor, tick, "a new surface can start after teardown")
}

func TestStream_StaleEventsIgnored(t *testing.T) {
	f := newFixture(t, nil)
	f.start()
	p := launchStream(t, f, "rtsp://a", "rtsp://b")

	f.bus.Publish(bus.UpdateStreamURLs{Primary: "rtsp://c"})
	require.Eventually(t, func() bool { return len(p.Plays()) == 2 }, waitFor, tick)

	// A counted stale error would leave the session settling, and the
	// end-of-stream below would then be ignored.
	p.EmitFor(1, player.EventError, errSource)
	p.Emit(player.EventEnded, nil)
	require.Eventually(t, func() bool { return !f.flags.StreamActive() }, waitFor, tick)
	assert.Zero(t, f.sched.Pending())
}

func TestStream_AnimationAutostartAndVolume(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	res := &fakeResolver{
		files: map[string]string{"intro.mp4": "/media/Movies/intro.mp4"},
		list:  []media.Video{{Name: "intro.mp4"}, {Name: "outro.mp4"}},
	}
	var store *intent.Store
	f := newFixture(t, func(c *HostConfig) {
		store = intent.NewStore(c.Bus, nil)
		c.Intent = store
		c.Resolver = res
		c.Stream.AutoStartAnimation = true
	})
	f.start()
	launchStream(t, f, "rtsp://a", "")
	anim := f.player(player.RoleAnimation, 0)

	require.Eventually(t, func() bool { return len(anim.Plays()) == 1 }, waitFor, tick)
	assert.Equal(t, "/media/Movies/intro.mp4", anim.Plays()[0])
	assert.Equal(t, "intro.mp4", store.Get().VideoName)
	assert.Equal(t, AnimationPlaying, f.host.Status().Stream.Animation.State)

	store.SetVolume(0.5)
	require.Eventually(t, func() bool {
		v := anim.Volumes()
		return len(v) > 0 && v[len(v)-1] == 0.5
	}, waitFor, tick)
	assert.Len(t, anim.Plays(), 1, "volume change does not restart the overlay")

	stops := anim.Stops()
	store.SetVideo("missing.mp4")
	require.Eventually(t, func() bool {
		return f.host.Status().Stream.Animation.State == AnimationNotFound
	}, waitFor, tick)
	assert.Equal(t, stops+1, anim.Stops(), "unresolvable name stops the previous video")

	store.ClearVideo()
	require.Eventually(t, func() bool {
		return f.host.Status().Stream.Animation.State == AnimationIdle
	}, waitFor, tick)
	assert.Equal(t, stops+2, anim.Stops())
	f.stop()
}

// gatedResolver blocks Resolve for one name until release is called.
type gatedResolver struct {
	fakeResolver
	slow    string
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (r *gatedResolver) Resolve(ctx context.Context, name string) (media.ResolvedMedia, error) {
	if name == r.slow {
		close(r.entered)
		<-r.gate
	}
	return r.fakeResolver.Resolve(ctx, name)
}

func (r *gatedResolver) release() { r.once.Do(func() { close(r.gate) }) }

func TestStream_AnimationFollowsLatestIntentAfterBurst(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	res := &gatedResolver{
		fakeResolver: fakeResolver{files: map[string]string{
			"slow.mp4":  "/media/Movies/slow.mp4",
			"final.mp4": "/media/Movies/final.mp4",
		}},
		slow:    "slow.mp4",
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	t.Cleanup(res.release)

	small := bus.New(bus.WithBuffer(2))
	var store *intent.Store
	f := newFixture(t, func(c *HostConfig) {
		c.Bus = small
		store = intent.NewStore(small, nil)
		c.Intent = store
		c.Resolver = res
	})
	f.bus = small
	f.start()
	launchStream(t, f, "rtsp://a", "")
	anim := f.player(player.RoleAnimation, 0)

	store.SetVideo("slow.mp4")
	select {
	case <-res.entered:
	case <-time.After(waitFor):
		t.Fatal("overlay never resolved the first video")
	}

	// The surface is stuck in Resolve: the buffer fills and later
	// snapshots are dropped.
	for i := 1; i <= 20; i++ {
		store.SetVolume(float64(i) / 100)
	}
	store.SetVideo("final.mp4")
	res.release()

	require.Eventually(t, func() bool {
		st := f.host.Status().Stream
		return st != nil && st.Animation.VideoName == "final.mp4" && st.Animation.State == AnimationPlaying
	}, waitFor, tick)
	plays := anim.Plays()
	assert.Equal(t, "/media/Movies/final.mp4", plays[len(plays)-1])
	vols := anim.Volumes()
	require.NotEmpty(t, vols)
	assert.Equal(t, 0.2, vols[len(vols)-1])
	assert.Equal(t, 0.2, f.host.Status().Stream.Animation.Volume)
	f.stop()
}

func TestStream_PlayerStartFailureCountsAsError(t *testing.T) {
	f := newFixture(t, nil)
	f.start()
	require.NoError(t, f.host.LaunchStream(context.Background(), StreamLaunch{Primary: "rtsp://a", Fallback: "rtsp://b"}))
	p := f.player(player.RoleStream, 0)
	require.Eventually(t, func() bool { return len(p.Plays()) == 1 }, waitFor, tick)

	p.FailPlay(errors.New("exec: mpv: not found"))
	p.Emit(player.EventError, errSource)
	waitPending(t, f, 1)

	f.sched.Advance(time.Second)
	require.Eventually(t, func() bool {
		return f.host.Status().Stream.Playback.ErrorCount == 2
	}, waitFor, tick)
}
