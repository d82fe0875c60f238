// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api implements the command server: the LAN-facing route table that
// turns HTTP requests into stream, remote-view and animation commands, plus
// the operator routes (probes, status, fallback notifications).
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/bus"
	"github.com/Mokrovi/backServ/internal/command"
	"github.com/Mokrovi/backServ/internal/config"
	"github.com/Mokrovi/backServ/internal/health"
	"github.com/Mokrovi/backServ/internal/intent"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/media"
	"github.com/Mokrovi/backServ/internal/notify"
	"github.com/Mokrovi/backServ/internal/session"
	"github.com/Mokrovi/backServ/internal/surface"
)

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("api: missing dependency")

// StreamController starts, redirects and toggles the stream surface.
// Relaunch retries a notification and returns a failed launch instead of
// posting another notification.
type StreamController interface {
	StartOrRedirect(ctx context.Context, req command.StreamRequest, requester string) (session.Outcome, error)
	Relaunch(ctx context.Context, req command.StreamRequest, requester string) (session.Outcome, error)
	Toggle(ctx context.Context, url, requester string) (session.Outcome, error)
	Status() session.ControllerStatus
}

// RemoteController toggles the remote-view surface.
type RemoteController interface {
	Toggle(ctx context.Context, requester string) (session.Outcome, error)
	Start(ctx context.Context, requester string) (session.Outcome, error)
}

// IntentStore is the animation intent written by the animation routes.
type IntentStore interface {
	Get() intent.Intent
	SetVideo(name string) intent.Intent
	ClearVideo() intent.Intent
	SetVolume(level float64) intent.Intent
}

// VideoLister lists playable animation files.
type VideoLister interface {
	ListAvailable(ctx context.Context) ([]media.Video, error)
}

// NotificationStore is the fallback notification inbox.
type NotificationStore interface {
	List(ctx context.Context) ([]notify.Notification, error)
	Get(ctx context.Context, id string) (notify.Notification, error)
	MarkLaunched(ctx context.Context, id string) error
	Dismiss(ctx context.Context, id string) error
}

// HostStatus reports the surface host.
type HostStatus interface {
	Status() surface.Status
}

// Deps are the collaborators of the command server. Notifications, Host and
// Health are optional; their operator routes answer 503 when nil.
type Deps struct {
	Controller    StreamController
	Remote        RemoteController
	Intent        IntentStore
	Videos        VideoLister
	Flags         *bus.Flags
	Notifications NotificationStore
	Host          HostStatus
	Health        *health.Manager
}

// Server is the command server.
type Server struct {
	cfg    config.AppConfig
	deps   Deps
	router chi.Router
	logger zerolog.Logger
}

// New builds the server and its router.
func New(cfg config.AppConfig, deps Deps) (*Server, error) {
	switch {
	case deps.Controller == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("stream controller"))
	case deps.Remote == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("remote controller"))
	case deps.Intent == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("intent store"))
	case deps.Videos == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("video lister"))
	case deps.Flags == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("surface flags"))
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: log.WithComponent("api"),
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}
