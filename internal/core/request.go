// AngelaMos | 2026
// request.go

package core

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DecodeAndValidate reads a JSON body into dst and validates it. On failure
// the error response is already written and false is returned.
func DecodeAndValidate(
	w http.ResponseWriter,
	r *http.Request,
	v *validator.Validate,
	dst any,
) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid request body")
		return false
	}

	if err := v.Struct(dst); err != nil {
		JSONError(w, FirstValidationError(err))
		return false
	}

	return true
}

// PathUUID reads a UUID route parameter. A malformed value cannot name a
// stored row, so it is answered as 404 for resource and false is returned.
func PathUUID(w http.ResponseWriter, r *http.Request, param, resource string) (string, bool) {
	id := chi.URLParam(r, param)
	if err := uuid.Validate(id); err != nil {
		NotFound(w, resource)
		return "", false
	}
	return id, true
}

// QueryUUID reads an optional UUID filter. A present but malformed value is
// reported as a validation error naming key.
func QueryUUID(r *http.Request, key string) (string, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return "", nil
	}
	if err := uuid.Validate(v); err != nil {
		return "", InvalidField(key, "must be a UUID")
	}
	return v, nil
}

func QueryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}

func PageParamsFromRequest(r *http.Request) PageParams {
	p := PageParams{
		Page:     QueryInt(r, "page", 1),
		PageSize: QueryInt(r, "page_size", 20),
	}
	p.Normalize()
	return p
}
