// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import "sync/atomic"

// Flags records which surfaces are currently shown. Surfaces write their own
// flag; everything else only reads.
type Flags struct {
	stream atomic.Bool
	remote atomic.Bool
}

// Active reports whether a surface of the given kind is up.
func (f *Flags) Active(s SurfaceKind) bool {
	if s == SurfaceRemote {
		return f.remote.Load()
	}
	return f.stream.Load()
}

// Set stores the flag for a surface kind and returns the previous value.
func (f *Flags) Set(s SurfaceKind, active bool) bool {
	if s == SurfaceRemote {
		return f.remote.Swap(active)
	}
	return f.stream.Swap(active)
}

// StreamActive is shorthand for Active(SurfaceStream).
func (f *Flags) StreamActive() bool { return f.stream.Load() }

// RemoteActive is shorthand for Active(SurfaceRemote).
func (f *Flags) RemoteActive() bool { return f.remote.Load() }
