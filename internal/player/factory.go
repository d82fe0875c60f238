// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

// Factory creates a player for a surface role.
type Factory func(role Role, debug bool) Player

// ExecFactory returns a Factory building ExecPlayers from base. Animation
// players loop; the debug flag applies per player.
func ExecFactory(base Options) Factory {
	return func(role Role, debug bool) Player {
		opts := base
		opts.Role = role
		opts.Loop = role == RoleAnimation
		opts.Debug = debug
		opts.Args = append([]string(nil), base.Args...)
		return NewExecPlayer(opts)
	}
}
