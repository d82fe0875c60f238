// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

// Kind names a signal type. Subscribers register for kinds, not values.
type Kind string

const (
	KindCloseStreamSurface  Kind = "close_stream_surface"
	KindCloseRemoteSurface  Kind = "close_remote_surface"
	KindUpdateStreamURLs    Kind = "update_stream_urls"
	KindSurfaceStateChanged Kind = "surface_state_changed"
	KindIntentChanged       Kind = "intent_changed"
)

// SurfaceKind identifies one of the two surface types.
type SurfaceKind string

const (
	SurfaceStream SurfaceKind = "stream"
	SurfaceRemote SurfaceKind = "remote"
)

// Signal is a fire-and-forget notification. The set of implementations is closed.
type Signal interface {
	Kind() Kind
	signal()
}

// CloseStreamSurface asks the active stream surface to tear down.
type CloseStreamSurface struct{}

// CloseRemoteSurface asks the active remote-view surface to tear down.
type CloseRemoteSurface struct{}

// UpdateStreamURLs redirects the active stream surface to a new source pair.
type UpdateStreamURLs struct {
	Primary  string `json:"primary,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// SurfaceStateChanged is announced by a surface after it raised or lowered its flag.
type SurfaceStateChanged struct {
	Surface SurfaceKind `json:"surface"`
	Active  bool        `json:"active"`
	ID      string      `json:"id,omitempty"`
}

// IntentChanged carries a full snapshot of the animation intent.
type IntentChanged struct {
	VideoName string  `json:"video_name,omitempty"`
	Volume    float64 `json:"volume"`
}

func (CloseStreamSurface) Kind() Kind  { return KindCloseStreamSurface }
func (CloseRemoteSurface) Kind() Kind  { return KindCloseRemoteSurface }
func (UpdateStreamURLs) Kind() Kind    { return KindUpdateStreamURLs }
func (SurfaceStateChanged) Kind() Kind { return KindSurfaceStateChanged }
func (IntentChanged) Kind() Kind       { return KindIntentChanged }

func (CloseStreamSurface) signal()  {}
func (CloseRemoteSurface) signal()  {}
func (UpdateStreamURLs) signal()    {}
func (SurfaceStateChanged) signal() {}
func (IntentChanged) signal()       {}

// CommandKinds are the named signals addressed to surfaces. They are the only
// kinds mirrored between processes.
var CommandKinds = []Kind{KindCloseStreamSurface, KindCloseRemoteSurface, KindUpdateStreamURLs}

