// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/Mokrovi/backServ/internal/command"
	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/media"
	"github.com/Mokrovi/backServ/internal/metrics"
	"github.com/Mokrovi/backServ/internal/ratelimit"
	"github.com/Mokrovi/backServ/internal/session"
	"github.com/Mokrovi/backServ/internal/telemetry"
)

// Response texts of the command protocol. Clients match on them.
const (
	textOK                = "OK"
	textEmptyBody         = "Empty request body."
	textNoStreamURL       = "No stream URL found in request body."
	textMalformed         = "Malformed request body."
	textMissingVideoName  = "video_name is required."
	textServerError       = "Server error."
	textRemoteStarted     = "Remote stream started."
	textRemoteStopped     = "Remote stream stopped."
	textRemoteStartFailed = "Server error: Could not start remote view. "
	textToggleReceived    = "Signal received, toggling local stream."
)

const (
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
	outcomeApplied  = "applied"
)

func (s *Server) record(r *http.Request, cmd command.Command, outcome, requester string) {
	metrics.RecordCommand(cmd.Name(), outcome)
	trace.SpanFromContext(r.Context()).SetAttributes(telemetry.CommandAttributes(cmd.Name(), outcome, requester)...)
}

// decodeFailure maps a body decoding error to its 4xx text; ok is false for
// errors that are not the client's fault.
func decodeFailure(err error) (text string, ok bool) {
	switch {
	case errors.Is(err, command.ErrEmptyBody):
		return textEmptyBody, true
	case errors.Is(err, command.ErrMissingStreamURL):
		return textNoStreamURL, true
	case errors.Is(err, command.ErrMissingVideoName):
		return textMissingVideoName, true
	case errors.Is(err, command.ErrMalformedRequest):
		return textMalformed, true
	default:
		return "", false
	}
}

func (s *Server) rejectDecode(w http.ResponseWriter, r *http.Request, cmd command.Command, requester string, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	if text, ok := decodeFailure(err); ok {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "command.rejected").
			Str("command", cmd.Name()).
			Str(log.FieldRemoteAddr, requester).
			Msg("rejected malformed command")
		s.record(r, cmd, outcomeRejected, requester)
		writeText(w, http.StatusBadRequest, text)
		return
	}
	logger.Error().Err(err).
		Str(log.FieldEvent, "command.failed").
		Str("command", cmd.Name()).
		Msg("failed to read command")
	s.record(r, cmd, outcomeFailed, requester)
	writeText(w, http.StatusInternalServerError, textServerError)
}

// handleStream starts a stream surface or redirects the live one.
// external_url is the primary source, local_url the fallback.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	requester := ratelimit.ClientIP(r)
	cmd, err := command.DecodeStream(r.Body)
	if err != nil {
		s.rejectDecode(w, r, command.StartOrRedirectStream{}, requester, err)
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(
		telemetry.StreamAttributes(cmd.Request.PrimaryURL, cmd.Request.FallbackURL)...)

	outcome, err := s.deps.Controller.StartOrRedirect(r.Context(), cmd.Request, requester)
	if err != nil {
		if errors.Is(err, command.ErrMissingStreamURL) {
			s.record(r, cmd, outcomeRejected, requester)
			writeText(w, http.StatusBadRequest, textNoStreamURL)
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(log.FieldEvent, "command.failed").
			Str("command", cmd.Name()).
			Msg("stream command failed")
		s.record(r, cmd, outcomeFailed, requester)
		writeText(w, http.StatusInternalServerError, textServerError)
		return
	}
	// A launch that fell back to a notification still answers OK.
	s.record(r, cmd, string(outcome), requester)
	writeText(w, http.StatusOK, textOK)
}

// handleToggleStream always acknowledges: a toggle that cannot start for
// lack of a url is logged only.
func (s *Server) handleToggleStream(w http.ResponseWriter, r *http.Request) {
	requester := ratelimit.ClientIP(r)
	cmd := command.DecodeToggle(r.URL.Query())

	outcome, err := s.deps.Controller.Toggle(r.Context(), cmd.URL, requester)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).
			Str(log.FieldEvent, "command.toggle_ignored").
			Str(log.FieldRemoteAddr, requester).
			Msg("toggle-stream could not be applied")
		s.record(r, cmd, outcomeRejected, requester)
	} else {
		s.record(r, cmd, string(outcome), requester)
	}
	writeText(w, http.StatusOK, textToggleReceived)
}

// handleTrigger toggles the remote view of the calling device.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	cmd, err := command.DecodeTrigger(r.RemoteAddr)
	if err != nil {
		s.rejectDecode(w, r, command.TriggerRemoteView{}, "", err)
		return
	}

	outcome, err := s.deps.Remote.Toggle(r.Context(), cmd.RequesterAddress)
	if err != nil {
		s.record(r, cmd, outcomeFailed, cmd.RequesterAddress)
		writeText(w, http.StatusInternalServerError, textRemoteStartFailed+err.Error())
		return
	}
	s.record(r, cmd, string(outcome), cmd.RequesterAddress)
	if outcome == session.OutcomeClosed {
		writeText(w, http.StatusOK, textRemoteStopped)
		return
	}
	writeText(w, http.StatusOK, textRemoteStarted)
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.deps.Videos.ListAvailable(r.Context())
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(log.FieldEvent, "videos.list_failed").
			Msg("failed to list videos")
		writeText(w, http.StatusInternalServerError, textServerError)
		return
	}
	if videos == nil {
		videos = []media.Video{}
	}
	writeJSON(w, http.StatusOK, videos)
}

func (s *Server) handlePlayAnimation(w http.ResponseWriter, r *http.Request) {
	requester := ratelimit.ClientIP(r)
	cmd, err := command.DecodePlayAnimation(r.Body)
	if err != nil {
		s.rejectDecode(w, r, command.PlayAnimation{}, requester, err)
		return
	}
	s.deps.Intent.SetVideo(cmd.VideoName)
	s.record(r, cmd, outcomeApplied, requester)
	writeText(w, http.StatusOK, textOK)
}

func (s *Server) handleStopAnimation(w http.ResponseWriter, r *http.Request) {
	cmd := command.StopAnimation{}
	s.deps.Intent.ClearVideo()
	s.record(r, cmd, outcomeApplied, ratelimit.ClientIP(r))
	writeText(w, http.StatusOK, textOK)
}

func (s *Server) handleAnimationVolume(w http.ResponseWriter, r *http.Request) {
	requester := ratelimit.ClientIP(r)
	cmd, err := command.DecodeVolume(r.Body)
	if err != nil {
		s.rejectDecode(w, r, command.SetAnimationVolume{}, requester, err)
		return
	}
	s.deps.Intent.SetVolume(cmd.Level)
	s.record(r, cmd, outcomeApplied, requester)
	writeText(w, http.StatusOK, textOK)
}
