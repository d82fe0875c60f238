// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Mokrovi/backServ/internal/config"
	"github.com/Mokrovi/backServ/internal/log"
)

type stubManager struct {
	startErr  error
	started   chan struct{}
	shutdowns atomic.Int32
	once      sync.Once
}

func newStubManager(startErr error) *stubManager {
	return &stubManager{startErr: startErr, started: make(chan struct{})}
}

func (m *stubManager) Start(ctx context.Context) error {
	m.once.Do(func() { close(m.started) })
	if m.startErr != nil {
		return m.startErr
	}
	<-ctx.Done()
	return nil
}

func (m *stubManager) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	return nil
}

func (m *stubManager) RegisterShutdownHook(string, ShutdownHook) {}

func TestApp_RequiresManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil)
	require.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}

func TestApp_RunsComponentsUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr := newStubManager(nil)
	app := NewApp(log.WithComponent("test"), mgr, nil)

	var stopped atomic.Bool
	running := make(chan struct{})
	app.AddComponent("worker", func(ctx context.Context) error {
		close(running)
		<-ctx.Done()
		stopped.Store(true)
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	<-running
	<-mgr.started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, stopped.Load())
	assert.Equal(t, int32(0), mgr.shutdowns.Load())
}

func TestApp_ComponentFailureStopsDaemon(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr := newStubManager(nil)
	app := NewApp(log.WithComponent("test"), mgr, nil)
	app.AddComponent("relay", func(context.Context) error {
		return errors.New("redis gone")
	})

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay: redis gone")
}

func TestApp_ManagerStartFailureShutsDown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr := newStubManager(errors.New("bind failed"))
	app := NewApp(log.WithComponent("test"), mgr, nil)

	err := app.Run(context.Background())
	require.EqualError(t, err, "bind failed")
	assert.Equal(t, int32(1), mgr.shutdowns.Load())
}

func TestApp_ReloadAppliesListeners(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig := func(level string) {
		t.Helper()
		body := "dataDir: " + dir + "\nlogLevel: " + level + "\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	writeConfig("info")

	loader := config.NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := config.NewConfigHolder(initial, loader, path)

	mgr := newStubManager(nil)
	app := NewApp(log.WithComponent("test"), mgr, holder)
	app.reloadSignal = nil

	applied := make(chan string, 4)
	app.OnReload(func(cfg config.AppConfig) { applied <- cfg.LogLevel })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	<-mgr.started

	writeConfig("debug")
	require.NoError(t, holder.Reload(context.Background()))

	select {
	case level := <-applied:
		assert.Equal(t, "debug", level)
	case <-time.After(2 * time.Second):
		t.Fatal("reload listener was not called")
	}

	cancel()
	require.NoError(t, <-done)
}
