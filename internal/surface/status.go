// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultStatusTimeout  = 3 * time.Second
	defaultStatusInterval = 5 * time.Second
	maxStatusBody         = 64 << 10
)

// RequesterStatus is the JSON document a requester serves on its status path.
type RequesterStatus struct {
	Streaming        bool `json:"streaming"`
	RTSPStreamActive bool `json:"rtsp_stream_active"`
}

// Live reports whether the requester still streams.
func (s RequesterStatus) Live() bool {
	return s.Streaming && s.RTSPStreamActive
}

// NewStatusClient returns a traced HTTP client for status polls.
func NewStatusClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultStatusTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// FetchStatus polls url once.
func FetchStatus(ctx context.Context, client *http.Client, url string) (RequesterStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RequesterStatus{}, fmt.Errorf("build status request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return RequesterStatus{}, fmt.Errorf("poll status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxStatusBody))
		return RequesterStatus{}, fmt.Errorf("poll status: unexpected status %d", resp.StatusCode)
	}

	var st RequesterStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxStatusBody)).Decode(&st); err != nil {
		return RequesterStatus{}, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}
