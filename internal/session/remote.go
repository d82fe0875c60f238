// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/bus"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/notify"
	"github.com/Mokrovi/backServ/internal/surface"
)

// RemoteLauncher starts remote-view surfaces.
type RemoteLauncher interface {
	LaunchRemote(ctx context.Context, requester string) error
}

// RemoteController toggles the remote-view surface.
type RemoteController struct {
	bus      bus.Publisher
	flags    *bus.Flags
	launcher RemoteLauncher
	notifier Notifier
	logger   zerolog.Logger

	mu sync.Mutex
}

// NewRemoteController wires a remote toggle. notifier may be nil.
func NewRemoteController(pub bus.Publisher, flags *bus.Flags, launcher RemoteLauncher, notifier Notifier) *RemoteController {
	return &RemoteController{
		bus:      pub,
		flags:    flags,
		launcher: launcher,
		notifier: notifier,
		logger:   log.WithComponent("remote"),
	}
}

// Toggle stops the live remote view or starts one for requester. Unlike
// stream launches, a failed start is returned to the caller. A view that is
// still starting makes the toggle a no-op.
func (r *RemoteController) Toggle(ctx context.Context, requester string) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger := r.logger.With().Str(log.FieldRequester, requester).Logger()
	if r.flags.RemoteActive() {
		r.bus.Publish(bus.CloseRemoteSurface{})
		logger.Info().Str(log.FieldEvent, "remote.close").Msg("closing remote view")
		return OutcomeClosed, nil
	}

	if err := r.launcher.LaunchRemote(ctx, requester); err != nil {
		if errors.Is(err, surface.ErrSurfaceBusy) {
			logger.Info().Str(log.FieldEvent, "remote.starting").Msg("remote view still starting, toggle ignored")
			return OutcomeNoop, nil
		}
		logger.Error().Err(err).Str(log.FieldEvent, "remote.launch_failed").Msg("could not start remote view")
		if r.notifier != nil {
			if _, perr := r.notifier.Post(ctx, notify.Notification{
				Kind:      notify.KindRemote,
				Requester: requester,
				Reason:    err.Error(),
			}); perr != nil {
				logger.Error().Err(perr).Msg("failed to post fallback notification")
			}
		}
		return OutcomeNotified, err
	}
	logger.Info().Str(log.FieldEvent, "remote.launch").Msg("remote view started")
	return OutcomeLaunched, nil
}

// Start launches a remote view unless one is already up.
func (r *RemoteController) Start(ctx context.Context, requester string) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flags.RemoteActive() {
		return OutcomeNoop, nil
	}
	if err := r.launcher.LaunchRemote(ctx, requester); err != nil {
		if errors.Is(err, surface.ErrSurfaceBusy) {
			return OutcomeNoop, nil
		}
		return OutcomeNoop, fmt.Errorf("start remote view: %w", err)
	}
	r.logger.Info().
		Str(log.FieldEvent, "remote.launch").
		Str(log.FieldRequester, requester).
		Msg("remote view started")
	return OutcomeLaunched, nil
}
