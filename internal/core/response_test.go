// AngelaMos | 2026
// response_test.go

package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		page, size, total int
		wantPages         int
	}{
		{page: 2, size: 20, total: 45, wantPages: 3},
		{page: 1, size: 20, total: 40, wantPages: 2},
		{page: 1, size: 20, total: 0, wantPages: 0},
		{page: 1, size: 0, total: 10, wantPages: 0},
	}

	for _, tt := range tests {
		p := NewPagination(tt.page, tt.size, tt.total)
		if p.TotalPages != tt.wantPages {
			t.Errorf("NewPagination(%d, %d, %d).TotalPages = %d, want %d",
				tt.page, tt.size, tt.total, p.TotalPages, tt.wantPages)
		}
		if p.CurrentPage != tt.page || p.TotalItems != tt.total || p.ItemsPerPage != tt.size {
			t.Errorf("unexpected pagination %+v", p)
		}
	}
}

func TestPaginatedEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, "leads", []string{"a", "b"}, 2, 20, 45)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Success    bool       `json:"success"`
		Leads      []string   `json:"leads"`
		Pagination Pagination `json:"pagination"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !body.Success || len(body.Leads) != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Pagination.TotalPages != 3 || body.Pagination.CurrentPage != 2 {
		t.Fatalf("unexpected pagination %+v", body.Pagination)
	}
}

func TestPageParamsFromRequest(t *testing.T) {
	tests := []struct {
		query    string
		page     int
		pageSize int
	}{
		{"", 1, 20},
		{"page=3&page_size=50", 3, 50},
		{"page=0&page_size=500", 1, 100},
		{"page=abc&page_size=-1", 1, 20},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/v1/leads?"+tt.query, nil)
		p := PageParamsFromRequest(r)
		if p.Page != tt.page || p.PageSize != tt.pageSize {
			t.Errorf("%q: got page=%d size=%d, want %d/%d",
				tt.query, p.Page, p.PageSize, tt.page, tt.pageSize)
		}
	}
}
