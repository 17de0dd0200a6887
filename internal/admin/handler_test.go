// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/crm-backend/internal/activity"
	"github.com/carterperez-dev/crm-backend/internal/core"
	"github.com/carterperez-dev/crm-backend/internal/health"
	"github.com/carterperez-dev/crm-backend/internal/lead"
)

type stubPurger struct {
	retention time.Duration
	removed   int64
}

func (s *stubPurger) PurgeExpired(_ context.Context, retention time.Duration) (int64, error) {
	s.retention = retention
	return s.removed, nil
}

type stubPipeline struct {
	stages []lead.StageCount
	err    error
}

func (s stubPipeline) PipelineSummary(context.Context) ([]lead.StageCount, error) {
	return s.stages, s.err
}

type captureRecorder struct {
	entries []activity.Entry
}

func (c *captureRecorder) Record(_ context.Context, e activity.Entry) {
	c.entries = append(c.entries, e)
}

func passthrough(next http.Handler) http.Handler { return next }

func allowAll(string) func(http.Handler) http.Handler { return passthrough }

func newRouter(cfg HandlerConfig) http.Handler {
	r := chi.NewRouter()
	NewHandler(cfg).RegisterRoutes(r, passthrough, allowAll)
	return r
}

func do(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestPurgeSessions(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  time.Duration
	}{
		{"default retention", "", 24 * time.Hour},
		{"custom retention", "?retention_hours=48", 48 * time.Hour},
		{"capped retention", "?retention_hours=100000", 90 * 24 * time.Hour},
		{"ignored garbage", "?retention_hours=soon", 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			purger := &stubPurger{removed: 7}
			rec := &captureRecorder{}
			router := newRouter(HandlerConfig{Sessions: purger, Recorder: rec})

			resp := do(router, http.MethodPost, "/admin/sessions/purge"+tt.query)
			if resp.Code != http.StatusOK {
				t.Fatalf("status = %d", resp.Code)
			}
			if purger.retention != tt.want {
				t.Fatalf("retention = %v, want %v", purger.retention, tt.want)
			}

			var body struct {
				Data PurgeResponse `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Data.Removed != 7 {
				t.Fatalf("removed = %d", body.Data.Removed)
			}
			if len(rec.entries) != 1 || rec.entries[0].Type != activity.TypeSessionsPurged {
				t.Fatalf("recorded %+v", rec.entries)
			}
		})
	}
}

func TestPurgeSessionsWithoutStore(t *testing.T) {
	resp := do(newRouter(HandlerConfig{}), http.MethodPost, "/admin/sessions/purge")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.Code)
	}
}

func TestPipeline(t *testing.T) {
	router := newRouter(HandlerConfig{Pipeline: stubPipeline{stages: []lead.StageCount{
		{Key: "new", Name: "New", Count: 3},
		{Key: "contacted", Name: "Contacted", Count: 2},
		{Key: "lost", Name: "Lost", Count: 0},
	}}})

	resp := do(router, http.MethodGet, "/admin/pipeline")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}

	var body struct {
		Data PipelineResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Total != 5 || len(body.Data.Stages) != 3 {
		t.Fatalf("unexpected summary %+v", body.Data)
	}
}

func TestOverviewReportsPipelineFailureInline(t *testing.T) {
	router := newRouter(HandlerConfig{
		Checks: func(context.Context) []health.HealthCheck {
			return []health.HealthCheck{{Name: "database", Healthy: true}}
		},
		DBStats:  func() sql.DBStats { return sql.DBStats{OpenConnections: 4, InUse: 1, Idle: 3} },
		Pipeline: stubPipeline{err: core.StoreError("count leads by status", errors.New("timeout"))},
	})

	resp := do(router, http.MethodGet, "/admin/overview")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}

	var body struct {
		Data OverviewResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Pipeline != nil || body.Data.PipelineError == "" {
		t.Fatalf("pipeline failure not reported: %+v", body.Data)
	}
	if body.Data.Pools.Postgres == nil || body.Data.Pools.Postgres.Open != 4 {
		t.Fatalf("pools = %+v", body.Data.Pools)
	}
	if body.Data.Pools.Redis != nil {
		t.Fatal("redis pool reported without a source")
	}
	if len(body.Data.Dependencies) != 1 || body.Data.Process.GoVersion == "" {
		t.Fatalf("unexpected overview %+v", body.Data)
	}
}
