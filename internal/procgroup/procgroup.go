// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts player processes in their own process group so
// the player and everything it forks can be stopped together.
package procgroup

import "errors"

// ErrKillFailed is returned when a process group survives SIGKILL.
var ErrKillFailed = errors.New("kill operation failed")
