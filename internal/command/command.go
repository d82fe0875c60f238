// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package command defines the commands accepted by the command server and
// decodes them from request bodies and query parameters.
package command

import "strings"

// Command is one of the decoded request variants. The set is closed.
type Command interface {
	// Name is a stable identifier used in logs and metrics.
	Name() string
	command()
}

// StreamRequest is the source pair for a stream surface. At least one URL is set.
type StreamRequest struct {
	PrimaryURL  string
	FallbackURL string
}

// NewStreamRequest trims both URLs and rejects a pair with neither set.
func NewStreamRequest(primary, fallback string) (StreamRequest, error) {
	req := StreamRequest{
		PrimaryURL:  strings.TrimSpace(primary),
		FallbackURL: strings.TrimSpace(fallback),
	}
	if req.Empty() {
		return StreamRequest{}, ErrMissingStreamURL
	}
	return req, nil
}

// Empty reports whether neither URL is present.
func (r StreamRequest) Empty() bool {
	return r.PrimaryURL == "" && r.FallbackURL == ""
}

// StartOrRedirectStream starts a stream surface or redirects the active one.
type StartOrRedirectStream struct {
	Request StreamRequest
}

// ToggleLocalStream closes the active stream surface or starts one from URL.
// URL may be empty; the controller decides whether that is an error.
type ToggleLocalStream struct {
	URL string
}

// TriggerRemoteView toggles the remote-view surface for a requester.
type TriggerRemoteView struct {
	RequesterAddress string
}

// PlayAnimation sets the animation video name.
type PlayAnimation struct {
	VideoName string
}

// StopAnimation clears the animation video name.
type StopAnimation struct{}

// SetAnimationVolume sets the animation volume, already clamped to [0, 1].
type SetAnimationVolume struct {
	Level float64
}

func (StartOrRedirectStream) Name() string { return "stream" }
func (ToggleLocalStream) Name() string     { return "toggle_stream" }
func (TriggerRemoteView) Name() string     { return "trigger" }
func (PlayAnimation) Name() string         { return "play_animation" }
func (StopAnimation) Name() string         { return "stop_animation" }
func (SetAnimationVolume) Name() string    { return "animation_volume" }

func (StartOrRedirectStream) command() {}
func (ToggleLocalStream) command()     {}
func (TriggerRemoteView) command()     {}
func (PlayAnimation) command()         {}
func (StopAnimation) command()         {}
func (SetAnimationVolume) command()    {}
