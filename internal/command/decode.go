// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/url"
	"strings"
)

// MaxBodyBytes bounds every command body.
const MaxBodyBytes = 64 << 10

// DefaultVolume applies when a volume body omits the level.
const DefaultVolume = 1.0

var (
	// ErrMalformedRequest is returned for bodies that are not valid JSON objects.
	ErrMalformedRequest = errors.New("malformed request body")
	// ErrEmptyBody is returned when a body is required but absent.
	ErrEmptyBody = errors.New("empty request body")
	// ErrMissingStreamURL is returned when neither stream URL is present.
	ErrMissingStreamURL = errors.New("no stream URL found in request body")
	// ErrMissingVideoName is returned when play-animation has no name.
	ErrMissingVideoName = errors.New("video_name is required")
	// ErrMissingRequester is returned when the requester address is unusable.
	ErrMissingRequester = errors.New("requester address is missing")
)

type streamBody struct {
	LocalURL    *string `json:"local_url"`
	ExternalURL *string `json:"external_url"`
}

type playAnimationBody struct {
	VideoName *string `json:"video_name"`
}

type volumeBody struct {
	Volume *float64 `json:"volume"`
}

// DecodeStream parses a /stream body. external_url is the primary source and
// local_url the fallback.
func DecodeStream(body io.Reader) (StartOrRedirectStream, error) {
	var b streamBody
	if err := decodeJSON(body, &b, true); err != nil {
		return StartOrRedirectStream{}, err
	}
	req, err := NewStreamRequest(deref(b.ExternalURL), deref(b.LocalURL))
	if err != nil {
		return StartOrRedirectStream{}, err
	}
	return StartOrRedirectStream{Request: req}, nil
}

// DecodeToggle builds a toggle command from the url query parameter.
func DecodeToggle(query url.Values) ToggleLocalStream {
	return ToggleLocalStream{URL: strings.TrimSpace(query.Get("url"))}
}

// DecodeTrigger builds a remote-view toggle from the request's remote address.
func DecodeTrigger(remoteAddr string) (TriggerRemoteView, error) {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return TriggerRemoteView{}, ErrMissingRequester
	}
	return TriggerRemoteView{RequesterAddress: host}, nil
}

// DecodePlayAnimation parses a /play-animation body.
func DecodePlayAnimation(body io.Reader) (PlayAnimation, error) {
	var b playAnimationBody
	if err := decodeJSON(body, &b, true); err != nil {
		if errors.Is(err, ErrEmptyBody) {
			return PlayAnimation{}, ErrMissingVideoName
		}
		return PlayAnimation{}, err
	}
	name := strings.TrimSpace(deref(b.VideoName))
	if name == "" {
		return PlayAnimation{}, ErrMissingVideoName
	}
	return PlayAnimation{VideoName: name}, nil
}

// DecodeVolume parses an /animation-volume body. A missing body or level
// selects DefaultVolume; out of range levels are clamped.
func DecodeVolume(body io.Reader) (SetAnimationVolume, error) {
	var b volumeBody
	if err := decodeJSON(body, &b, false); err != nil {
		return SetAnimationVolume{}, err
	}
	level := DefaultVolume
	if b.Volume != nil {
		level = ClampVolume(*b.Volume)
	}
	return SetAnimationVolume{Level: level}, nil
}

// ClampVolume limits v to [0, 1]. NaN maps to DefaultVolume.
func ClampVolume(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return DefaultVolume
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func decodeJSON(body io.Reader, dst any, required bool) error {
	if body == nil {
		if required {
			return ErrEmptyBody
		}
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if len(data) > MaxBodyBytes {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedRequest, MaxBodyBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if required {
			return ErrEmptyBody
		}
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
