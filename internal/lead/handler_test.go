// AngelaMos | 2026
// handler_test.go

package lead

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/crm-backend/internal/core"
	"github.com/carterperez-dev/crm-backend/internal/middleware"
	"github.com/carterperez-dev/crm-backend/internal/rbac"
)

func newTestRouter(h *leadHarness, denied ...string) http.Handler {
	deny := rbac.NewSet(denied...)

	authenticator := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithPrincipal(r.Context(), &middleware.Principal{UserID: "actor-1"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	guard := func(permission string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if deny.Has(permission) {
					core.Forbidden(w, "insufficient permissions")
					return
				}
				next.ServeHTTP(w, r)
			})
		}
	}

	r := chi.NewRouter()
	NewHandler(h.svc).RegisterRoutes(r, authenticator, guard)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndGet(t *testing.T) {
	h := newLeadHarness(t)
	router := newTestRouter(h)

	rec := doJSON(t, router, http.MethodPost, "/leads", map[string]any{
		"first_name": "Grace",
		"last_name":  "Hopper",
		"email":      "grace@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Data LeadResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Data.Status != "new" || created.Data.StatusName != "New" {
		t.Fatalf("unexpected lead %+v", created.Data)
	}

	rec = doJSON(t, router, http.MethodGet, "/leads/"+created.Data.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
}

func TestHandlerRejectsBackwardTransition(t *testing.T) {
	h := newLeadHarness(t)
	router := newTestRouter(h)

	l := h.createJohnDoe(t)
	h.move(t, l.ID, "contacted")

	rec := doJSON(t, router, http.MethodPost, "/leads/"+l.ID+"/transition", map[string]any{
		"to_status": "new",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}

	var body core.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "INVALID_TRANSITION" {
		t.Fatalf("code = %q", body.Code)
	}
}

func TestHandlerUnknownLead(t *testing.T) {
	router := newTestRouter(newLeadHarness(t))

	for _, path := range []string{
		"/leads/does-not-exist",
		"/leads/6f1c2b8e-3d4a-4f5b-9c6d-7e8f9a0b1c2d",
		"/leads/abc/activities",
	} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestHandlerRejectsMalformedFilter(t *testing.T) {
	router := newTestRouter(newLeadHarness(t))

	for _, query := range []string{"assigned_to=x", "source=not-a-uuid"} {
		rec := doJSON(t, router, http.MethodGet, "/leads?"+query, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestHandlerListPagination(t *testing.T) {
	h := newLeadHarness(t)
	router := newTestRouter(h)

	for range 45 {
		h.createJohnDoe(t)
	}

	rec := doJSON(t, router, http.MethodGet, "/leads?limit=20&page=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Leads      []LeadResponse  `json:"leads"`
		Pagination core.Pagination `json:"pagination"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Leads) != 20 {
		t.Fatalf("page holds %d leads, want 20", len(body.Leads))
	}
	want := core.Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 45, ItemsPerPage: 20}
	if body.Pagination != want {
		t.Fatalf("pagination = %+v, want %+v", body.Pagination, want)
	}
}

func TestHandlerTransitionToConvertedNeedsConvertPermission(t *testing.T) {
	h := newLeadHarness(t)
	router := newTestRouter(h, rbac.LeadsConvert)

	l := h.createJohnDoe(t)
	h.move(t, l.ID, "negotiation")

	rec := doJSON(t, router, http.MethodPost, "/leads/"+l.ID+"/convert", map[string]any{
		"conversion_value": 1200,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("convert status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/leads/"+l.ID+"/transition", map[string]any{
		"to_status": "converted",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("transition status = %d, want 403", rec.Code)
	}

	got, err := h.svc.Get(t.Context(), l.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "negotiation" || got.ConvertedAt != nil {
		t.Fatalf("lead converted despite denial: status=%s", got.Status)
	}

	rec = doJSON(t, router, http.MethodPost, "/leads/"+l.ID+"/transition", map[string]any{
		"to_status": "lost",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("lost transition status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestHandlerGuardRunsBeforeHandler(t *testing.T) {
	h := newLeadHarness(t)
	router := newTestRouter(h, rbac.LeadsDelete)

	l := h.createJohnDoe(t)

	rec := doJSON(t, router, http.MethodDelete, "/leads/"+l.ID, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if _, err := h.svc.Get(t.Context(), l.ID); err != nil {
		t.Fatalf("lead was deleted despite denial: %v", err)
	}
}

func TestHandlerRejectsReservedActivity(t *testing.T) {
	h := newLeadHarness(t)
	router := newTestRouter(h)
	l := h.createJohnDoe(t)

	rec := doJSON(t, router, http.MethodPost, "/leads/"+l.ID+"/activities", map[string]any{
		"activity_type": "stage_changed",
		"subject":       "sneaky",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}
