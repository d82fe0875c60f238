// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/config"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/player"
)

// PerformStartupChecks validates the environment before the daemon starts
// serving. Problems that only degrade playback are logged, not returned.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkDataDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	if err := checkListenAddr(logger, "api", cfg.API.ListenAddr); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		if err := checkListenAddr(logger, "metrics", cfg.Metrics.ListenAddr); err != nil {
			return err
		}
	}
	checkRuntime(logger, cfg)

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	// Check write permissions by creating a temp file
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("data directory is writable")
	return nil
}

func checkListenAddr(logger zerolog.Logger, name, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid %s listen address %q: %w", name, addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid %s listen port %q in %q", name, port, addr)
	}
	logger.Info().Str("addr", addr).Msgf("%s listen address is valid", name)
	return nil
}

// checkRuntime warns about conditions the daemon survives but an operator
// should know about.
func checkRuntime(logger zerolog.Logger, cfg config.AppConfig) {
	if err := player.Available(cfg.Player.Command); err != nil {
		logger.Warn().Err(err).
			Str("command", cfg.Player.Command).
			Msg("player binary not found; surface launches will fail until it is installed")
	}

	roots := cfg.Media.SearchRoots()
	if len(roots) == 0 {
		logger.Warn().Msg("no media roots configured; /videos will be empty")
	}
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			logger.Debug().Err(err).Str("root", root).Msg("media root not accessible, skipped by resolver")
		}
	}

	if strings.EqualFold(cfg.State.Backend, config.StateBackendMemory) {
		logger.Warn().
			Str("state_backend", cfg.State.Backend).
			Msg("animation intent is not persisted across restarts")
	}

	tempDir := filepath.Clean(os.TempDir())
	dataDir := filepath.Clean(cfg.DataDir)
	if tempDir != "." && (dataDir == tempDir || strings.HasPrefix(dataDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("data_dir", cfg.DataDir).
			Msg("data directory is under temp; notifications and intent may be lost on reboot")
	}
}
