// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Mokrovi/backServ/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func receive(t *testing.T, sub *Subscription) Signal {
	t.Helper()
	select {
	case sig, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return sig
	case <-time.After(time.Second):
		t.Fatal("no signal received")
		return nil
	}
}

func TestPublish_DeliversToKindSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New()
	defer b.Close()
	ctx := context.Background()

	streamSub := b.Subscribe(ctx, KindCloseStreamSurface, KindUpdateStreamURLs)
	remoteSub := b.Subscribe(ctx, KindCloseRemoteSurface)

	assert.True(t, b.Publish(UpdateStreamURLs{Primary: "rtsp://a", Fallback: "rtsp://b"}))
	assert.Equal(t, UpdateStreamURLs{Primary: "rtsp://a", Fallback: "rtsp://b"}, receive(t, streamSub))

	assert.True(t, b.Publish(CloseRemoteSurface{}))
	assert.Equal(t, CloseRemoteSurface{}, receive(t, remoteSub))

	select {
	case sig := <-streamSub.C():
		t.Fatalf("unexpected signal %v", sig)
	default:
	}
}

func TestPublish_NoSubscriberIsDropped(t *testing.T) {
	b := New()
	defer b.Close()

	counter := metrics.BusDroppedTotal.WithLabelValues(string(KindCloseStreamSurface), DropNoSubscriber)
	before := getCounterValue(t, counter)

	assert.False(t, b.Publish(CloseStreamSurface{}))
	assert.Equal(t, before+1, getCounterValue(t, counter))
}

func TestPublish_FullBufferDropsWithoutBlocking(t *testing.T) {
	b := New(WithBuffer(1))
	defer b.Close()
	sub := b.Subscribe(context.Background(), KindCloseStreamSurface)

	counter := metrics.BusDroppedTotal.WithLabelValues(string(KindCloseStreamSurface), DropFull)
	before := getCounterValue(t, counter)

	assert.True(t, b.Publish(CloseStreamSurface{}))
	assert.False(t, b.Publish(CloseStreamSurface{}))
	assert.Equal(t, before+1, getCounterValue(t, counter))
	assert.Len(t, sub.C(), 1)
}

func TestSubscribe_ContextCancelUnsubscribes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	sub := b.Subscribe(ctx, KindIntentChanged)
	require.True(t, b.hasSubscribers(KindIntentChanged))

	cancel()
	require.Eventually(t, func() bool { return !b.hasSubscribers(KindIntentChanged) }, time.Second, 5*time.Millisecond)

	_, ok := <-sub.C()
	assert.False(t, ok, "channel closed after cancel")
	assert.NoError(t, sub.Close(), "second close is a no-op")
}

func TestClose_EndsSubscriptionsAndRejectsPublish(t *testing.T) {
	b := New()
	sub := b.Subscribe(context.Background(), KindCloseStreamSurface, KindCloseRemoteSurface)

	b.Close()
	b.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.False(t, b.Publish(CloseStreamSurface{}))

	late := b.Subscribe(context.Background(), KindCloseStreamSurface)
	_, ok = <-late.C()
	assert.False(t, ok)
}

func TestPublish_ConcurrentWithUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New(WithBuffer(4))
	defer b.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				b.Publish(UpdateStreamURLs{Primary: "rtsp://a"})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s := b.Subscribe(context.Background(), KindUpdateStreamURLs)
				_ = s.Close()
			}
		}()
	}
	wg.Wait()
}

func TestMirror_SeesLocalButNotDelivered(t *testing.T) {
	b := New()
	defer b.Close()

	var mu sync.Mutex
	var mirrored []Signal
	b.SetMirror(func(s Signal) {
		mu.Lock()
		mirrored = append(mirrored, s)
		mu.Unlock()
	})

	b.Publish(CloseStreamSurface{})
	b.Deliver(CloseRemoteSurface{})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Signal{CloseStreamSurface{}}, mirrored)
}

func TestFlags(t *testing.T) {
	var f Flags
	assert.False(t, f.StreamActive())
	assert.False(t, f.Set(SurfaceStream, true))
	assert.True(t, f.Active(SurfaceStream))
	assert.False(t, f.RemoteActive())

	assert.False(t, f.Set(SurfaceRemote, true))
	assert.True(t, f.Set(SurfaceRemote, false))
	assert.False(t, f.Active(SurfaceRemote))
}

func TestCodec_RoundTripsCommandSignals(t *testing.T) {
	for _, sig := range []Signal{
		CloseStreamSurface{},
		CloseRemoteSurface{},
		UpdateStreamURLs{Primary: "rtsp://a", Fallback: "rtsp://b"},
		SurfaceStateChanged{Surface: SurfaceRemote, Active: true, ID: "x"},
		IntentChanged{VideoName: "loop.mp4", Volume: 0.5},
	} {
		data, err := Encode("origin-1", sig)
		require.NoError(t, err)
		env, got, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, "origin-1", env.Origin)
		assert.Equal(t, sig, got)
	}

	_, _, err := Decode([]byte(`{"origin":"x","kind":"launch_missiles"}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}
