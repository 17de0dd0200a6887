// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Dependency is a named backing service probed by the readiness endpoint.
// Optional dependencies report their state but never fail readiness.
type Dependency struct {
	Name     string
	Checker  Checker
	Optional bool
}

type phase int32

const (
	phaseStarting phase = iota
	phaseServing
	phaseDraining
)

type Handler struct {
	deps      []Dependency
	timeout   time.Duration
	version   string
	startedAt time.Time
	phase     atomic.Int32
}

type Option func(*Handler)

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func WithVersion(version string) Option {
	return func(h *Handler) { h.version = version }
}

// NewHandler starts in the starting phase; call SetReady once startup work
// such as stage synchronization has finished.
func NewHandler(deps []Dependency, opts ...Option) *Handler {
	h := &Handler{
		deps:      deps,
		timeout:   5 * time.Second,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) current() phase {
	return phase(h.phase.Load())
}

// SetReady moves between starting and serving. It is a no-op once draining.
func (h *Handler) SetReady(ready bool) {
	from, to := phaseStarting, phaseServing
	if !ready {
		from, to = phaseServing, phaseStarting
	}
	h.phase.CompareAndSwap(int32(from), int32(to))
}

func (h *Handler) SetShutdown(shutdown bool) {
	if shutdown {
		h.phase.Store(int32(phaseDraining))
	}
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if h.current() == phaseDraining {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "shutting_down"})
		return
	}

	writeStatus(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Readiness fails while starting or draining, and when any required
// dependency is down. A failed optional dependency only degrades it.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	switch h.current() {
	case phaseDraining:
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "shutting_down"})
		return
	case phaseStarting:
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "not_ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := h.RunChecks(ctx)
	status, code := verdict(checks)
	writeStatus(w, code, ReadinessResponse{Status: status, Checks: checks})
}

func verdict(checks []HealthCheck) (string, int) {
	status := "ok"
	for _, c := range checks {
		switch {
		case c.Healthy:
		case c.Optional:
			status = "degraded"
		default:
			return "unavailable", http.StatusServiceUnavailable
		}
	}
	return status, http.StatusOK
}

// RunChecks pings every dependency concurrently. Results keep the
// registration order.
func (h *Handler) RunChecks(ctx context.Context) []HealthCheck {
	checks := make([]HealthCheck, len(h.deps))

	var wg sync.WaitGroup
	for i, dep := range h.deps {
		wg.Go(func() { checks[i] = probe(ctx, dep) })
	}
	wg.Wait()

	return checks
}

func probe(ctx context.Context, dep Dependency) HealthCheck {
	check := HealthCheck{Name: dep.Name, Optional: dep.Optional}

	if dep.Checker == nil {
		check.Message = "no checker configured"
		return check
	}

	start := time.Now()
	err := dep.Checker.Ping(ctx)
	check.Latency = time.Since(start).String()
	check.Healthy = err == nil
	if err != nil {
		check.Message = "ping failed"
	}
	return check
}

func writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	core.JSON(w, status, data)
}

type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Message  string `json:"message,omitempty"`
}
