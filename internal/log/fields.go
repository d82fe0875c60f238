// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldSurfaceID     = "surface_id"
	FieldNotification  = "notification_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldSurface   = "surface"

	// Playback fields
	FieldPrimaryURL  = "primary_url"
	FieldFallbackURL = "fallback_url"
	FieldSourceURL   = "source_url"
	FieldVideoName   = "video_name"
	FieldVolume      = "volume"
	FieldErrorCount  = "error_count"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// HTTP fields
	FieldMethod     = "method"
	FieldRoute      = "route"
	FieldStatus     = "status"
	FieldRemoteAddr = "remote_addr"
	FieldRequester  = "requester"
)
