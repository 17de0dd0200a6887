// AngelaMos | 2026
// errors_test.go

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestToAppErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing field", MissingField("email"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"wrapped not found", fmt.Errorf("get lead: %w", ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"duplicate", fmt.Errorf("create user: %w", ErrDuplicateKey), http.StatusConflict, "DUPLICATE"},
		{"transition", InvalidTransitionError("lost", "new"), http.StatusConflict, "INVALID_TRANSITION"},
		{"bare transition", fmt.Errorf("x: %w", ErrInvalidTransition), http.StatusConflict, "INVALID_TRANSITION"},
		{"conflict", fmt.Errorf("update lead: %w", ErrConflict), http.StatusConflict, "CONFLICT"},
		{"locked", fmt.Errorf("login: %w", ErrAccountLocked), http.StatusLocked, "ACCOUNT_LOCKED"},
		{"revoked", ErrTokenRevoked, http.StatusUnauthorized, "TOKEN_REVOKED"},
		{"unauthorized", fmt.Errorf("bad creds: %w", ErrUnauthorized), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"store timeout", StoreError("list leads", context.DeadlineExceeded), http.StatusInternalServerError, "STORAGE_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := ToAppError(tt.err)
			if app == nil {
				t.Fatalf("no mapping for %v", tt.err)
			}
			if app.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", app.StatusCode, tt.status)
			}
			if app.Code != tt.code {
				t.Errorf("code = %s, want %s", app.Code, tt.code)
			}
		})
	}
}

func TestStoreErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := StoreError("append activity", cause)

	if !errors.Is(err, ErrStorage) {
		t.Error("expected ErrStorage")
	}
	if !errors.Is(err, cause) {
		t.Error("expected original cause")
	}
	if ToAppError(err) != nil {
		t.Error("raw storage failures should fall through to a 500")
	}
}

func TestJSONErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, StoreError("list leads", errors.New("pq: relation missing")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success {
		t.Error("success must be false")
	}
	if body.Error != "internal server error" || body.Code != "INTERNAL_ERROR" {
		t.Errorf("unexpected body %+v", body)
	}
}
