// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package player drives an external media player process (mpv by default)
// and reports its lifecycle as events.
package player

import (
	"errors"
	"fmt"
	"os/exec"
)

// EventKind classifies player lifecycle events.
type EventKind string

const (
	// EventBuffering is emitted when a process was started for a URL.
	EventBuffering EventKind = "buffering"
	// EventReady is emitted once the player confirmed playback over IPC and
	// kept playing for the ready window.
	EventReady EventKind = "ready"
	// EventEnded is emitted when the process exited with status 0.
	EventEnded EventKind = "ended"
	// EventError is emitted when the process exited with a failure.
	EventError EventKind = "error"
)

// Event is one player lifecycle event. Gen identifies the Play call that
// produced it.
type Event struct {
	Kind EventKind
	URL  string
	Gen  uint64
	Err  error
}

// Role names what a player instance is used for. It labels logs and metrics.
type Role string

const (
	RoleStream    Role = "stream"
	RoleAnimation Role = "animation"
	RoleRemote    Role = "remote"
)

var (
	// ErrClosed is returned by Play after Close.
	ErrClosed = errors.New("player closed")
	// ErrUnavailable is returned when the player binary cannot be found.
	ErrUnavailable = errors.New("player binary unavailable")
)

// Player is the playback capability a surface drives.
//
// Events are delivered on a buffered channel. After Stop or a new Play
// returns, no event from the previous process is delivered.
type Player interface {
	Play(url string) error
	SetVolume(level float64)
	Stop()
	Events() <-chan Event
	Close()
}

// Available reports whether command resolves to an executable.
func Available(command string) error {
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, command, err)
	}
	return nil
}
