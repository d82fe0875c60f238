// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"sync"
	"time"

	xglog "github.com/Mokrovi/backServ/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// ConfigHolder is the live configuration. Reload swaps it atomically and
// hands the new value to every registered listener. A failed reload keeps the
// previous value.
type ConfigHolder struct {
	loader     *Loader
	configPath string
	logger     zerolog.Logger

	mu        sync.RWMutex
	current   AppConfig
	listeners []chan<- AppConfig
	watcher   *fsnotify.Watcher
}

// NewConfigHolder wraps initial. configPath is the file watched for changes;
// empty disables the watcher.
func NewConfigHolder(initial AppConfig, loader *Loader, configPath string) *ConfigHolder {
	return &ConfigHolder{
		current:    initial,
		loader:     loader,
		configPath: configPath,
		logger:     xglog.WithComponent("config"),
	}
}

// Get returns the current configuration.
func (h *ConfigHolder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// RegisterListener adds ch to the reload fan-out. Sends never block: a full
// channel misses that reload.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, ch)
}

// Reload loads and validates the file again.
func (h *ConfigHolder) Reload(_ context.Context) error {
	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	listeners := slices.Clone(h.listeners)
	h.mu.Unlock()

	for _, ch := range listeners {
		select {
		case ch <- next:
		default:
			h.logger.Warn().Str("event", "config.listener_skip").Msg("listener busy, reload not delivered")
		}
	}

	changed := ReloadChanges(prev, next)
	h.logger.Info().
		Str("event", "config.reload_success").
		Strs("changed", changed).
		Msg("configuration reloaded")
	if slices.Contains(changed, "api.listenAddr") || slices.Contains(changed, "media") {
		h.logger.Warn().
			Str("event", "config.restart_required").
			Msg("listen address or media roots changed; restart to apply")
	}
	return nil
}

// ReloadChanges names the top-level settings that differ between two configs.
func ReloadChanges(prev, next AppConfig) []string {
	var out []string
	add := func(name string, differs bool) {
		if differs {
			out = append(out, name)
		}
	}
	add("logLevel", prev.LogLevel != next.LogLevel)
	add("player.debug", prev.Player.Debug != next.Player.Debug)
	add("stream", prev.Stream != next.Stream)
	add("remote", prev.Remote != next.Remote)
	add("api.listenAddr", prev.API.ListenAddr != next.API.ListenAddr)
	add("media", !reflect.DeepEqual(prev.Media, next.Media))
	return out
}

// StartWatcher reloads after the config file settles for reloadDebounce.
// The directory is watched because editors and renameio replace the file.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().Str("event", "config.watcher_disabled").Msg("no config file, watcher disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.configPath)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.mu.Lock()
	h.watcher = watcher
	h.mu.Unlock()

	h.logger.Info().Str("event", "config.watcher_started").Str("path", h.configPath).Msg("watching config file")
	go h.watch(ctx, watcher)
	return nil
}

func (h *ConfigHolder) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(h.configPath)
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			h.logger.Debug().Str("event", "config.file_changed").Str("op", ev.Op.String()).Msg("config file changed")
			debounce.Reset(reloadDebounce)
		case <-debounce.C:
			if err := h.Reload(ctx); err != nil {
				h.logger.Error().Err(err).Str("event", "config.auto_reload_failed").Msg("automatic config reload failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop closes the watcher, if one is running.
func (h *ConfigHolder) Stop() {
	h.mu.Lock()
	w := h.watcher
	h.watcher = nil
	h.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
}
