package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/tutorlink/tutorlink/internal/errors"
	"github.com/tutorlink/tutorlink/internal/metrics"
)

// Check states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

const defaultCheckTimeout = 3 * time.Second

// HealthResponse is the aggregate health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the live/ready/startup probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is implemented by dependencies that can be probed.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) CheckHealth(ctx context.Context) error { return f(ctx) }

type registeredCheck struct {
	checker  HealthChecker
	critical bool
}

// HealthManager aggregates dependency checks. A failing critical check
// makes the service unhealthy; a failing optional one degrades it.
type HealthManager struct {
	version   string
	startedAt time.Time
	timeout   time.Duration
	started   atomic.Bool

	mu     sync.RWMutex
	checks map[string]registeredCheck
}

// NewHealthManager returns a manager reporting version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		version:   version,
		startedAt: time.Now(),
		timeout:   defaultCheckTimeout,
		checks:    make(map[string]registeredCheck),
	}
}

// RegisterChecker adds a critical check.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.register(name, checker, true)
}

// RegisterOptional adds a check whose failure only degrades the service.
func (hm *HealthManager) RegisterOptional(name string, checker HealthChecker) {
	hm.register(name, checker, false)
}

func (hm *HealthManager) register(name string, checker HealthChecker, critical bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[name] = registeredCheck{checker: checker, critical: critical}
}

// MarkStarted flips the startup probe to healthy.
func (hm *HealthManager) MarkStarted() {
	hm.started.Store(true)
}

// Run executes every check concurrently and returns per-check states and
// the aggregate status.
func (hm *HealthManager) Run(ctx context.Context) (map[string]string, string) {
	hm.mu.RLock()
	checks := make(map[string]registeredCheck, len(hm.checks))
	for name, c := range hm.checks {
		checks[name] = c
	}
	hm.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(checks))
	)
	for name, c := range checks {
		wg.Add(1)
		go func(name string, c registeredCheck) {
			defer wg.Done()
			state := hm.probe(ctx, name, c.checker)
			if state == StatusUnhealthy && !c.critical {
				state = StatusDegraded
			}
			mu.Lock()
			results[name] = state
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()
	return results, overallStatus(results)
}

func (hm *HealthManager) probe(ctx context.Context, name string, checker HealthChecker) string {
	checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()

	started := time.Now()
	err := checker.CheckHealth(checkCtx)
	metrics.RecordHealthCheck(name, err == nil, time.Since(started))

	switch {
	case err == nil:
		return StatusHealthy
	case checkCtx.Err() != nil:
		return StatusTimeout
	default:
		return StatusUnhealthy
	}
}

func overallStatus(results map[string]string) string {
	status := StatusHealthy
	for _, state := range results {
		switch state {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			status = StatusDegraded
		}
	}
	return status
}

// HealthHandler serves GET /health.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	results, status := hm.Run(r.Context())
	if status == StatusUnhealthy {
		hm.respondUnavailable(w, r, "aggregate health check failed", "", status, results)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(hm.startedAt).Round(time.Second).String(),
		Checks:    results,
	})
}

// LivenessHandler reports that the process is serving; it runs no checks.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProbeResponse{Status: StatusHealthy, Timestamp: time.Now().UTC()})
}

// ReadinessHandler reports whether critical dependencies are reachable.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	results, status := hm.Run(r.Context())
	if status == StatusUnhealthy {
		hm.respondUnavailable(w, r, "readiness probe failed", "ready", status, results)
		return
	}
	writeJSON(w, http.StatusOK, ProbeResponse{Status: status, Timestamp: time.Now().UTC()})
}

// StartupHandler reports unavailable until MarkStarted is called.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	if !hm.started.Load() {
		hm.respondUnavailable(w, r, "startup in progress", "startup", "starting", nil)
		return
	}
	writeJSON(w, http.StatusOK, ProbeResponse{Status: StatusHealthy, Timestamp: time.Now().UTC()})
}

func (hm *HealthManager) respondUnavailable(w http.ResponseWriter, r *http.Request, message, probe, status string, results map[string]string) {
	envelope := apperrors.New(apperrors.CodeServiceUnavailable, message)
	apperrors.RespondWithEnvelope(w, r, enrichHealthEnvelope(envelope, probe, status, results))
}

func enrichHealthEnvelope(envelope *errors.ErrorEnvelope, probe, status string, results map[string]string) *errors.ErrorEnvelope {
	details := map[string]interface{}{"status": status}
	if len(results) > 0 {
		details["checks"] = results
	}
	if probe != "" {
		details["probe"] = probe
	}
	envelope = envelope.WithDetails(details)

	var failing []string
	for name, state := range results {
		if state != StatusHealthy {
			failing = append(failing, name)
		}
	}
	if len(failing) == 0 {
		return envelope
	}
	sort.Strings(failing)
	if updated, err := envelope.WithContext(map[string]interface{}{"failing_checks": failing}); err == nil {
		envelope = updated
	}
	return envelope
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
