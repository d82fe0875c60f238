// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mokrovi/backServ/internal/config"
)

func startupConfig(t *testing.T) config.AppConfig {
	t.Helper()
	return config.AppConfig{
		DataDir: filepath.Join(t.TempDir(), "data"),
		API:     config.APISettings{ListenAddr: ":8080"},
		Metrics: config.MetricsSettings{Enabled: true, ListenAddr: "127.0.0.1:9090"},
		Media:   config.MediaSettings{ExternalRoot: t.TempDir()},
		Player:  config.PlayerSettings{Command: "backserv-test-player-does-not-exist"},
		State:   config.StateSettings{Backend: config.StateBackendMemory},
	}
}

func TestPerformStartupChecks_CreatesDataDir(t *testing.T) {
	cfg := startupConfig(t)
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	_, err = os.Stat(filepath.Join(cfg.DataDir, ".write_test"))
	assert.True(t, os.IsNotExist(err))
}

func TestPerformStartupChecks_DataDirIsFile(t *testing.T) {
	cfg := startupConfig(t)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	cfg.DataDir = file

	err := PerformStartupChecks(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory check failed")
}

func TestPerformStartupChecks_ListenAddr(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.AppConfig)
		wantErr string
	}{
		{name: "missing port", mutate: func(c *config.AppConfig) { c.API.ListenAddr = "localhost" }, wantErr: "invalid api listen address"},
		{name: "port out of range", mutate: func(c *config.AppConfig) { c.API.ListenAddr = ":70000" }, wantErr: "invalid api listen port"},
		{name: "bad metrics addr", mutate: func(c *config.AppConfig) { c.Metrics.ListenAddr = "metrics" }, wantErr: "invalid metrics listen address"},
		{name: "metrics disabled", mutate: func(c *config.AppConfig) {
			c.Metrics.Enabled = false
			c.Metrics.ListenAddr = "metrics"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := startupConfig(t)
			tt.mutate(&cfg)
			err := PerformStartupChecks(context.Background(), cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
