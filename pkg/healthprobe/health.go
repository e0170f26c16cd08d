package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// ReadinessProbe reports whether the application's own components
// currently consider themselves healthy, with a human-readable reason
// when they don't. Checked by Ready() in addition to the started
// flag, so SetReady(true) means "started" but a stale price oracle or
// a cancelled search loop can still flip readiness back off.
type ReadinessProbe func() (ok bool, reason string)

// HealthChecker provides health and readiness checks.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool
	probe     atomic.Value // ReadinessProbe
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
	}
}

// SetReady marks the application as started and able to serve
// traffic, independent of any wired ReadinessProbe.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetReadinessProbe wires a live check of the app's own components
// (e.g. the Price Oracle's freshness, the Search Loop's state),
// consulted by Ready() once SetReady(true) has been called.
func (h *HealthChecker) SetReadinessProbe(probe ReadinessProbe) {
	h.probe.Store(probe)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Message string `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status: "healthy",
			Uptime: uptime.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks. Returns 503
// until SetReady(true) has been called, then defers to the wired
// ReadinessProbe (if any) for ongoing readiness.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			h.writeStatus(w, http.StatusServiceUnavailable, "not_ready", "application is starting")
			return
		}

		if probe, ok := h.probe.Load().(ReadinessProbe); ok && probe != nil {
			if ready, reason := probe(); !ready {
				h.writeStatus(w, http.StatusServiceUnavailable, "not_ready", reason)
				return
			}
		}

		h.writeStatus(w, http.StatusOK, "ready", "")
	}
}

func (h *HealthChecker) writeStatus(w http.ResponseWriter, code int, status, message string) {
	resp := HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.startTime).String(),
		Message: message,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
