// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func ok() CheckerFunc {
	return func(context.Context) error { return nil }
}

func failing() CheckerFunc {
	return func(context.Context) error { return errors.New("connection refused") }
}

func serve(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, ReadinessResponse) {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body ReadinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec, body
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		deps       []Dependency
		wantCode   int
		wantStatus string
	}{
		{
			name: "all healthy",
			deps: []Dependency{
				{Name: "database", Checker: ok()},
				{Name: "redis", Checker: ok(), Optional: true},
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "optional down",
			deps: []Dependency{
				{Name: "database", Checker: ok()},
				{Name: "redis", Checker: failing(), Optional: true},
			},
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
		},
		{
			name: "required down",
			deps: []Dependency{
				{Name: "database", Checker: failing()},
				{Name: "redis", Checker: ok(), Optional: true},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unavailable",
		},
		{
			name:       "required without checker",
			deps:       []Dependency{{Name: "database"}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.deps)
			h.SetReady(true)

			rec, body := serve(t, h, "/readyz")

			if rec.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
			if body.Status != tt.wantStatus {
				t.Fatalf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if len(body.Checks) != len(tt.deps) {
				t.Fatalf("checks = %d, want %d", len(body.Checks), len(tt.deps))
			}
			for i, check := range body.Checks {
				if check.Name != tt.deps[i].Name {
					t.Fatalf("check %d = %q, want %q", i, check.Name, tt.deps[i].Name)
				}
			}
		})
	}
}

func TestReadinessBeforeReady(t *testing.T) {
	h := NewHandler([]Dependency{{Name: "database", Checker: ok()}})

	rec, body := serve(t, h, "/readyz")

	if rec.Code != http.StatusServiceUnavailable || body.Status != "not_ready" {
		t.Fatalf("got %d %q", rec.Code, body.Status)
	}
}

func TestLivenessDuringShutdown(t *testing.T) {
	h := NewHandler(nil, WithVersion("1.2.3"))

	rec, body := serve(t, h, "/livez")
	if rec.Code != http.StatusOK || body.Status != "ok" {
		t.Fatalf("got %d %q", rec.Code, body.Status)
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Fatal("missing Cache-Control header")
	}

	h.SetShutdown(true)
	rec, body = serve(t, h, "/healthz")
	if rec.Code != http.StatusServiceUnavailable || body.Status != "shutting_down" {
		t.Fatalf("got %d %q", rec.Code, body.Status)
	}
}

func TestSetReadyAfterShutdownKeepsDraining(t *testing.T) {
	h := NewHandler([]Dependency{{Name: "database", Checker: ok()}})
	h.SetReady(true)
	h.SetShutdown(true)
	h.SetReady(true)

	rec, body := serve(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable || body.Status != "shutting_down" {
		t.Fatalf("got %d %q", rec.Code, body.Status)
	}
}
