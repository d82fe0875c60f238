// SPDX-License-Identifier: MIT

// Package validate accumulates configuration problems so they can be
// reported together instead of one per restart.
package validate

import (
	"cmp"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Error is one rejected field.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// ValidationError bundles every Error found in one pass.
type ValidationError struct {
	errors []Error
}

// Errors returns the individual failures.
func (e ValidationError) Errors() []Error {
	return e.errors
}

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validator collects failures from its check methods.
type Validator struct {
	errors []Error
}

func New() *Validator {
	return &Validator{}
}

// AddError records a failure for field.
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

func (v *Validator) Errors() []Error {
	return v.errors
}

// Err returns nil or a ValidationError holding a copy of the failures.
func (v *Validator) Err() error {
	if v.IsValid() {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

func inRange[T cmp.Ordered](v *Validator, field string, value, lo, hi T, what string) {
	if value < lo || value > hi {
		v.AddError(field, fmt.Sprintf("%s must be between %v and %v, got %v", what, lo, hi, value), value)
	}
}

// Range checks lo <= value <= hi.
func (v *Validator) Range(field string, value, lo, hi int) {
	inRange(v, field, value, lo, hi, "value")
}

// FloatRange checks lo <= value <= hi.
func (v *Validator) FloatRange(field string, value, lo, hi float64) {
	inRange(v, field, value, lo, hi, "value")
}

// DurationRange checks lo <= value <= hi.
func (v *Validator) DurationRange(field string, value, lo, hi time.Duration) {
	inRange(v, field, value, lo, hi, "duration")
}

// Positive checks value > 0.
func (v *Validator) Positive(field string, value int) {
	if value <= 0 {
		v.AddError(field, fmt.Sprintf("value must be positive, got %d", value), value)
	}
}

// Port checks a TCP port in 1..65535.
func (v *Validator) Port(field string, port int) {
	inRange(v, field, port, 1, 65535, "port")
}

// ListenAddr checks "host:port" or ":port". Port 0 is allowed for tests.
func (v *Validator) ListenAddr(field, addr string, optional bool) {
	if strings.TrimSpace(addr) == "" {
		if !optional {
			v.AddError(field, "listen address cannot be empty", addr)
		}
		return
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid listen address: %v", err), addr)
		return
	}
	if port, err := strconv.Atoi(portStr); err != nil || port < 0 || port > 65535 {
		v.AddError(field, fmt.Sprintf("invalid port %q", portStr), addr)
	}
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// OneOf checks value against a fixed set.
func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value), value)
	}
}

// URLPath checks an absolute path such as "/status" without query or fragment.
func (v *Validator) URLPath(field, value string) {
	switch {
	case !strings.HasPrefix(value, "/"):
		v.AddError(field, "path must start with '/'", value)
	case strings.ContainsAny(value, " ?#"):
		v.AddError(field, "path must not contain spaces, query or fragment", value)
	}
}

// LogLevel checks a zerolog level name.
func (v *Validator) LogLevel(field, value string) {
	if _, err := zerolog.ParseLevel(strings.ToLower(value)); err != nil || value == "" {
		v.AddError(field, "invalid log level (must be: trace, debug, info, warn, error)", value)
	}
}
