// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Mokrovi/backServ/internal/config"
)

// RunFunc is a long-lived component loop. It must return once ctx is done.
type RunFunc func(ctx context.Context) error

// ReloadFunc applies a freshly loaded configuration.
type ReloadFunc func(cfg config.AppConfig)

type component struct {
	name string
	run  RunFunc
}

// App owns the long-lived runtime lifecycle (watchers, reload wiring,
// component loops) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	reloadSignal os.Signal

	components []component
	onReload   []ReloadFunc
}

// NewApp creates a new App orchestrator. cfgHolder may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		reloadSignal: syscall.SIGHUP,
	}
}

// AddComponent registers a loop started with the servers. A component
// returning an error stops the daemon; returning nil before shutdown does not.
func (a *App) AddComponent(name string, run RunFunc) {
	a.components = append(a.components, component{name: name, run: run})
}

// OnReload registers fn to run after every successful config reload.
func (a *App) OnReload(fn ReloadFunc) {
	a.onReload = append(a.onReload, fn)
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		defer a.cfgHolder.Stop()
	}

	if a.cfgHolder != nil && len(a.onReload) > 0 {
		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					for _, fn := range a.onReload {
						fn(cfg)
					}
					a.logger.Info().Str("event", "config.applied").Msg("reloaded configuration applied")
				}
			}
		})
	}

	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(context.Background()); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	for _, c := range a.components {
		g.Go(func() error {
			a.logger.Debug().Str("component", c.name).Msg("component started")
			if err := c.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error().Err(err).Str("component", c.name).Msg("component failed")
				return fmt.Errorf("%s: %w", c.name, err)
			}
			a.logger.Debug().Str("component", c.name).Msg("component stopped")
			return nil
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
