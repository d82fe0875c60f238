// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when decoding a signal of an unsupported kind.
var ErrUnknownKind = errors.New("unknown signal kind")

// Envelope is the wire form of a relayed signal.
type Envelope struct {
	Origin  string          `json:"origin"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps sig in an envelope tagged with origin.
func Encode(origin string, sig Signal) ([]byte, error) {
	payload, err := json.Marshal(sig)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", sig.Kind(), err)
	}
	return json.Marshal(Envelope{Origin: origin, Kind: sig.Kind(), Payload: payload})
}

// Decode parses an envelope and its signal.
func Decode(data []byte) (Envelope, Signal, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	var sig Signal
	switch env.Kind {
	case KindCloseStreamSurface:
		sig = CloseStreamSurface{}
	case KindCloseRemoteSurface:
		sig = CloseRemoteSurface{}
	case KindUpdateStreamURLs:
		var s UpdateStreamURLs
		if err := unmarshalPayload(env.Payload, &s); err != nil {
			return env, nil, err
		}
		sig = s
	case KindSurfaceStateChanged:
		var s SurfaceStateChanged
		if err := unmarshalPayload(env.Payload, &s); err != nil {
			return env, nil, err
		}
		sig = s
	case KindIntentChanged:
		var s IntentChanged
		if err := unmarshalPayload(env.Payload, &s); err != nil {
			return env, nil, err
		}
		sig = s
	default:
		return env, nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
	return env, sig, nil
}

func unmarshalPayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}
