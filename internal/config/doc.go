// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads, validates, watches and persists the backserv
// configuration. Values are merged as defaults, then the YAML file, then
// BACKSERV_* environment variables.
package config
