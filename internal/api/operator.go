// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Mokrovi/backServ/internal/command"
	"github.com/Mokrovi/backServ/internal/config"
	"github.com/Mokrovi/backServ/internal/intent"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/notify"
	"github.com/Mokrovi/backServ/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		return
	}
	s.deps.Health.ServeHealth(w, r)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeServiceUnavailable(w, "health manager")
		return
	}
	s.deps.Health.ServeReady(w, r)
}

var _ ServerInterface = (*Server)(nil)

// GetStatus implements ServerInterface.
func (s *Server) GetStatus(w http.ResponseWriter, _ *http.Request) {
	resp := Status{
		Address: net.JoinHostPort(config.LocalIPv4(), config.ListenPort(s.cfg.API.ListenAddr)),
		Flags: SurfaceFlags{
			StreamActive: s.deps.Flags.StreamActive(),
			RemoteActive: s.deps.Flags.RemoteActive(),
		},
		Controller: controllerStatusBody(s.deps.Controller.Status()),
		Intent:     intentBody(s.deps.Intent.Get()),
		Version:    optional(s.cfg.Version),
	}
	if s.deps.Host != nil {
		st := s.deps.Host.Status()
		resp.Host = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListNotifications implements ServerInterface.
func (s *Server) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if s.deps.Notifications == nil {
		writeServiceUnavailable(w, "notification store")
		return
	}
	list, err := s.deps.Notifications.List(r.Context())
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(log.FieldEvent, "notification.list_failed").
			Msg("failed to list notifications")
		writeError(w, http.StatusInternalServerError, errors.New("failed to list notifications"))
		return
	}
	out := make([]Notification, 0, len(list))
	for _, n := range list {
		out = append(out, notificationBody(n))
	}
	writeJSON(w, http.StatusOK, out)
}

// LaunchNotification implements ServerInterface. It re-runs the launch a
// notification offers and marks it launched. A launch that fails again is
// answered with 502 and leaves the notification pending.
func (s *Server) LaunchNotification(w http.ResponseWriter, r *http.Request, id string) {
	if s.deps.Notifications == nil {
		writeServiceUnavailable(w, "notification store")
		return
	}
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "api")

	n, err := s.deps.Notifications.Get(ctx, id)
	if errors.Is(err, notify.ErrNotFound) {
		writeNotFound(w)
		return
	}
	if err != nil {
		logger.Error().Err(err).Str(log.FieldNotification, id).Msg("failed to load notification")
		writeError(w, http.StatusInternalServerError, errors.New("failed to load notification"))
		return
	}

	var outcome session.Outcome
	switch n.Kind {
	case notify.KindStream:
		req, rerr := command.NewStreamRequest(n.PrimaryURL, n.FallbackURL)
		if rerr != nil {
			writeError(w, http.StatusUnprocessableEntity, rerr)
			return
		}
		outcome, err = s.deps.Controller.Relaunch(ctx, req, n.Requester)
	case notify.KindRemote:
		outcome, err = s.deps.Remote.Start(ctx, n.Requester)
	default:
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("unknown notification kind %q", n.Kind))
		return
	}
	if err != nil {
		logger.Error().Err(err).
			Str(log.FieldEvent, "notification.launch_failed").
			Str(log.FieldNotification, id).
			Msg("manual launch failed")
		writeError(w, http.StatusBadGateway, err)
		return
	}

	if err := s.deps.Notifications.MarkLaunched(ctx, id); err != nil && !errors.Is(err, notify.ErrNotFound) {
		logger.Error().Err(err).Str(log.FieldNotification, id).Msg("failed to mark notification launched")
	}
	logger.Info().
		Str(log.FieldEvent, "notification.launched").
		Str(log.FieldNotification, id).
		Str("outcome", string(outcome)).
		Msg("manual launch from notification")
	writeJSON(w, http.StatusOK, LaunchResult{
		Id:      id,
		Kind:    NotificationKind(n.Kind),
		Outcome: LaunchResultOutcome(outcome),
	})
}

// DismissNotification implements ServerInterface.
func (s *Server) DismissNotification(w http.ResponseWriter, r *http.Request, id string) {
	if s.deps.Notifications == nil {
		writeServiceUnavailable(w, "notification store")
		return
	}
	err := s.deps.Notifications.Dismiss(r.Context(), id)
	switch {
	case errors.Is(err, notify.ErrNotFound):
		writeNotFound(w)
	case err != nil:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(log.FieldNotification, id).
			Msg("failed to dismiss notification")
		writeError(w, http.StatusInternalServerError, errors.New("failed to dismiss notification"))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// operatorBindError answers a path parameter the generated wrapper could not bind.
func operatorBindError(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, http.StatusBadRequest, err)
}

func controllerStatusBody(st session.ControllerStatus) ControllerStatus {
	return ControllerStatus{
		State:          ControllerStatusState(st.State),
		ActiveSurface:  optional(st.ActiveSurface),
		PendingRequest: st.PendingRequest,
		PendingClose:   st.PendingClose,
		Debug:          st.Debug,
	}
}

func intentBody(in intent.Intent) AnimationIntent {
	return AnimationIntent{VideoName: optional(in.VideoName), Volume: in.Volume}
}

func notificationBody(n notify.Notification) Notification {
	return Notification{
		Id:          n.ID,
		Kind:        NotificationKind(n.Kind),
		PrimaryUrl:  optional(n.PrimaryURL),
		FallbackUrl: optional(n.FallbackURL),
		Requester:   optional(n.Requester),
		Debug:       n.Debug,
		Reason:      optional(n.Reason),
		CreatedAt:   n.CreatedAt,
		LaunchedAt:  n.LaunchedAt,
		Dismissed:   n.Dismissed,
	}
}

// optional maps the empty string to an absent field.
func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
