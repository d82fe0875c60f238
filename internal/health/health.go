// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness checks for the daemon.
// It backs the /healthz and /readyz routes and the healthcheck subcommand.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Mokrovi/backServ/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the full health check response
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime_seconds"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version   string
	startedAt time.Time

	mu       sync.RWMutex
	checkers []Checker
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{
		version:   version,
		startedAt: time.Now(),
		checkers:  make([]Checker, 0),
	}
}

// RegisterChecker adds a health checker to the manager
func (m *Manager) RegisterChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

func (m *Manager) snapshot() []Checker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Checker(nil), m.checkers...)
}

// run executes every checker and folds the results into one status.
func run(ctx context.Context, checkers []Checker) (map[string]CheckResult, Status) {
	results := make(map[string]CheckResult, len(checkers))
	overall := StatusHealthy
	for _, checker := range checkers {
		result := checker.Check(ctx)
		results[checker.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return results, overall
}

// Health performs a health check (liveness probe).
// The process is alive regardless of component state; components are only
// reported when verbose is set.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Uptime:    int64(time.Since(m.startedAt).Seconds()),
		Timestamp: time.Now(),
	}

	checkers := m.snapshot()
	if verbose && len(checkers) > 0 {
		resp.Checks, resp.Status = run(ctx, checkers)
	}
	return resp
}

// Ready performs a readiness check (readiness probe).
// Degraded components keep the service ready; unhealthy ones do not.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}

	checkers := m.snapshot()
	if len(checkers) == 0 {
		return resp
	}
	resp.Checks, resp.Status = run(ctx, checkers)
	resp.Ready = resp.Status != StatusUnhealthy
	return resp
}

// ServeHealth handles HTTP health check requests
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // Always 200 for liveness

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}
}

// ServeReady handles HTTP readiness check requests
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "readiness.encode_error").Msg("failed to encode readiness response")
	}

	if !resp.Ready {
		logger.Warn().
			Str("event", "readiness.failed").
			Str("status", string(resp.Status)).
			Msg("readiness check failed")
	}
}

// CheckFunc adapts a probe function to a Checker. An error marks the
// component unhealthy.
type CheckFunc struct {
	name  string
	probe func(ctx context.Context) error
}

// NewCheckFunc creates a named probe checker.
func NewCheckFunc(name string, probe func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, probe: probe}
}

func (c *CheckFunc) Name() string { return c.name }

func (c *CheckFunc) Check(ctx context.Context) CheckResult {
	if err := c.probe(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// DirsChecker checks that media roots are readable. Missing roots are
// tolerated as long as one is readable.
type DirsChecker struct {
	name  string
	paths []string
}

// NewDirsChecker creates a checker over paths.
func NewDirsChecker(name string, paths []string) *DirsChecker {
	return &DirsChecker{name: name, paths: append([]string(nil), paths...)}
}

func (c *DirsChecker) Name() string {
	return c.name
}

func (c *DirsChecker) Check(ctx context.Context) CheckResult {
	if len(c.paths) == 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no directories configured",
		}
	}

	readable := 0
	var lastErr error
	for _, p := range c.paths {
		if ctx.Err() != nil {
			return CheckResult{Status: StatusUnhealthy, Error: ctx.Err().Error()}
		}
		f, err := os.Open(p) // #nosec G304 -- operator-configured media root
		if err != nil {
			lastErr = err
			continue
		}
		info, err := f.Stat()
		_ = f.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if !info.IsDir() {
			continue
		}
		readable++
	}

	switch {
	case readable == 0:
		res := CheckResult{Status: StatusUnhealthy, Message: "no readable directory"}
		if lastErr != nil {
			res.Error = lastErr.Error()
		}
		return res
	case readable < len(c.paths):
		return CheckResult{Status: StatusDegraded, Message: "some directories are not readable"}
	default:
		return CheckResult{Status: StatusHealthy, Message: "all directories readable"}
	}
}
