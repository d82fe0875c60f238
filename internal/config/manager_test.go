// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvMediaRoot, dir)
	t.Setenv(EnvDataDir, dir)

	cfg, err := NewLoader("", "dev").Load()
	require.NoError(t, err)
	cfg.Player.Debug = true
	cfg.Stream.CloseGrace = cfg.Stream.CloseGrace * 2

	path := filepath.Join(dir, "conf", "config.yaml")
	require.NoError(t, NewManager(path).Save(&cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)
	assert.True(t, reloaded.Player.Debug)
	assert.Equal(t, cfg.Stream, reloaded.Stream)
	assert.Equal(t, cfg.Remote, reloaded.Remote)
	assert.Equal(t, cfg.API, reloaded.API)
}

func TestManager_SaveWithoutPath(t *testing.T) {
	cfg := AppConfig{}
	require.Error(t, NewManager("").Save(&cfg))
}
