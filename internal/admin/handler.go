// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/crm-backend/internal/activity"
	"github.com/carterperez-dev/crm-backend/internal/core"
	"github.com/carterperez-dev/crm-backend/internal/health"
	"github.com/carterperez-dev/crm-backend/internal/lead"
	"github.com/carterperez-dev/crm-backend/internal/middleware"
	"github.com/carterperez-dev/crm-backend/internal/rbac"
)

const (
	defaultPurgeRetention = 24 * time.Hour
	maxPurgeRetention     = 90 * 24 * time.Hour
)

// SessionPurger deletes sessions that expired more than retention ago.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

type PipelineSummarizer interface {
	PipelineSummary(ctx context.Context) ([]lead.StageCount, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry)
}

// Handler serves operator endpoints. Every route requires admin.system.
type Handler struct {
	cfg HandlerConfig
}

// HandlerConfig leaves any field nil to drop that section from responses.
type HandlerConfig struct {
	Checks     func(ctx context.Context) []health.HealthCheck
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	Pipeline   PipelineSummarizer
	Sessions   SessionPurger
	Recorder   ActivityRecorder
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	guard func(permission string) func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(guard(rbac.AdminSystem))

		r.Get("/overview", h.Overview)
		r.Get("/pipeline", h.Pipeline)
		r.Get("/pools", h.Pools)
		r.Post("/sessions/purge", h.PurgeSessions)
	})
}

// Overview bundles dependency checks, pool usage, the pipeline summary and
// process stats. A failing pipeline query is reported inline.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	resp := OverviewResponse{
		Pools:   h.pools(),
		Process: readProcess(),
	}

	if h.cfg.Checks != nil {
		resp.Dependencies = h.cfg.Checks(r.Context())
	}

	if h.cfg.Pipeline != nil {
		stages, err := h.cfg.Pipeline.PipelineSummary(r.Context())
		if err != nil {
			resp.PipelineError = "pipeline summary unavailable"
		} else {
			resp.Pipeline = summarize(stages)
		}
	}

	core.OK(w, resp)
}

func (h *Handler) Pipeline(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Pipeline == nil {
		unavailable(w, "pipeline summary not configured")
		return
	}

	stages, err := h.cfg.Pipeline.PipelineSummary(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, summarize(stages))
}

func (h *Handler) Pools(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.pools())
}

// PurgeSessions removes expired sessions. retention_hours overrides the
// default grace period and is capped at 90 days.
func (h *Handler) PurgeSessions(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Sessions == nil {
		unavailable(w, "session store not configured")
		return
	}

	retention := defaultPurgeRetention
	if hours := core.QueryInt(r, "retention_hours", 0); hours > 0 {
		retention = min(time.Duration(hours)*time.Hour, maxPurgeRetention)
	}

	removed, err := h.cfg.Sessions.PurgeExpired(r.Context(), retention)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	if h.cfg.Recorder != nil {
		h.cfg.Recorder.Record(r.Context(), activity.New(
			middleware.GetUserID(r.Context()),
			activity.TypeSessionsPurged,
			activity.SubjectSession,
			"",
			"expired sessions purged",
		).With("removed", removed).With("retention", retention.String()))
	}

	core.OK(w, PurgeResponse{
		Removed:   removed,
		Retention: retention.String(),
	})
}

func (h *Handler) pools() PoolsResponse {
	var out PoolsResponse

	if h.cfg.DBStats != nil {
		s := h.cfg.DBStats()
		out.Postgres = &PostgresPool{
			Open:      s.OpenConnections,
			InUse:     s.InUse,
			Idle:      s.Idle,
			MaxOpen:   s.MaxOpenConnections,
			WaitCount: s.WaitCount,
			WaitTime:  s.WaitDuration.String(),
		}
	}

	if h.cfg.RedisStats != nil {
		if s := h.cfg.RedisStats(); s != nil {
			out.Redis = &RedisPool{
				Total:    s.TotalConns,
				Idle:     s.IdleConns,
				Hits:     s.Hits,
				Misses:   s.Misses,
				Timeouts: s.Timeouts,
			}
		}
	}

	return out
}

func summarize(stages []lead.StageCount) *PipelineResponse {
	total := 0
	for _, st := range stages {
		total += st.Count
	}
	return &PipelineResponse{Total: total, Stages: stages}
}

func readProcess() ProcessStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return ProcessStats{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		HeapBytes:  mem.HeapAlloc,
		GCCycles:   mem.NumGC,
	}
}

func unavailable(w http.ResponseWriter, message string) {
	core.JSON(w, http.StatusServiceUnavailable, core.ErrorResponse{
		Error: message,
		Code:  "UNAVAILABLE",
	})
}

type OverviewResponse struct {
	Dependencies  []health.HealthCheck `json:"dependencies,omitempty"`
	Pools         PoolsResponse        `json:"pools"`
	Pipeline      *PipelineResponse    `json:"pipeline,omitempty"`
	PipelineError string               `json:"pipeline_error,omitempty"`
	Process       ProcessStats         `json:"process"`
}

type PipelineResponse struct {
	Total  int               `json:"total"`
	Stages []lead.StageCount `json:"stages"`
}

type PoolsResponse struct {
	Postgres *PostgresPool `json:"postgres,omitempty"`
	Redis    *RedisPool    `json:"redis,omitempty"`
}

type PostgresPool struct {
	Open      int    `json:"open"`
	InUse     int    `json:"in_use"`
	Idle      int    `json:"idle"`
	MaxOpen   int    `json:"max_open"`
	WaitCount int64  `json:"wait_count"`
	WaitTime  string `json:"wait_time"`
}

type RedisPool struct {
	Total    uint32 `json:"total"`
	Idle     uint32 `json:"idle"`
	Hits     uint32 `json:"hits"`
	Misses   uint32 `json:"misses"`
	Timeouts uint32 `json:"timeouts"`
}

type ProcessStats struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	HeapBytes  uint64 `json:"heap_bytes"`
	GCCycles   uint32 `json:"gc_cycles"`
}

type PurgeResponse struct {
	Removed   int64  `json:"removed"`
	Retention string `json:"retention"`
}
