// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the service.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Command attributes
	CommandNameKey    = "command.name"
	CommandOutcomeKey = "command.outcome"
	CommandRequester  = "command.requester"

	// Stream attributes
	StreamHasPrimaryKey  = "stream.has_primary"
	StreamHasFallbackKey = "stream.has_fallback"

	// Surface attributes
	SurfaceKindKey = "surface.kind"
	SurfaceIDKey   = "surface.id"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// CommandAttributes describes a decoded command and what the controller did
// with it. Empty values are omitted.
func CommandAttributes(name, outcome, requester string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if name != "" {
		attrs = append(attrs, attribute.String(CommandNameKey, name))
	}
	if outcome != "" {
		attrs = append(attrs, attribute.String(CommandOutcomeKey, outcome))
	}
	if requester != "" {
		attrs = append(attrs, attribute.String(CommandRequester, requester))
	}
	return attrs
}

// StreamAttributes records which sources a stream request carried. URLs are
// not recorded; they may embed credentials.
func StreamAttributes(primary, fallback string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(StreamHasPrimaryKey, primary != ""),
		attribute.Bool(StreamHasFallbackKey, fallback != ""),
	}
}

// SurfaceAttributes identifies a surface.
func SurfaceAttributes(kind, id string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(SurfaceKindKey, kind)}
	if id != "" {
		attrs = append(attrs, attribute.String(SurfaceIDKey, id))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
