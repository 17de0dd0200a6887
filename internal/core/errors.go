// AngelaMos | 2026
// errors.go

package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrAccountLocked     = errors.New("account locked")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrTokenRevoked      = errors.New("token revoked")
	ErrStorageTimeout    = errors.New("storage timeout")
	ErrStorage           = errors.New("storage failure")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func MissingField(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}

func InvalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		fmt.Sprintf("%s already exists", field),
		http.StatusConflict,
		"DUPLICATE",
	)
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict, "CONFLICT")
}

func InvalidTransitionError(from, to string) *AppError {
	return NewAppError(
		ErrInvalidTransition,
		fmt.Sprintf("cannot move lead from %s to %s", from, to),
		http.StatusConflict,
		"INVALID_TRANSITION",
	)
}

func AccountLockedError() *AppError {
	return NewAppError(
		ErrAccountLocked,
		"account temporarily locked due to too many failed login attempts",
		http.StatusLocked,
		"ACCOUNT_LOCKED",
	)
}

func TokenExpiredError() *AppError {
	return NewAppError(ErrTokenExpired, "token has expired", http.StatusUnauthorized, "TOKEN_EXPIRED")
}

func TokenRevokedError() *AppError {
	return NewAppError(ErrTokenRevoked, "token has been revoked", http.StatusUnauthorized, "TOKEN_REVOKED")
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, "invalid token", http.StatusUnauthorized, "TOKEN_INVALID")
}

func StorageTimeoutError() *AppError {
	return NewAppError(
		ErrStorageTimeout,
		"storage did not respond in time",
		http.StatusInternalServerError,
		"STORAGE_TIMEOUT",
	)
}

func ValidationAppError(err error) *AppError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return NewAppError(err, ve.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
	}
	return NewAppError(err, "invalid input", http.StatusBadRequest, "VALIDATION_ERROR")
}

// StoreError wraps a raw repository error as ErrStorage. An expired
// deadline becomes ErrStorageTimeout, a serialization failure or deadlock
// becomes ErrConflict and an unparseable argument becomes ErrInvalidInput.
func StoreError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrStorageTimeout)
	}
	if IsInvalidText(err) {
		return fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}
	if IsRetryable(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// ToAppError maps a domain error onto the client facing taxonomy. Errors
// without a mapping come back as nil so callers fall through to a 500.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return ValidationAppError(err)
	case errors.Is(err, ErrNotFound):
		return NotFoundError("resource")
	case errors.Is(err, ErrForbidden):
		return ForbiddenError("insufficient permissions")
	case errors.Is(err, ErrDuplicateKey):
		return DuplicateError("resource")
	case errors.Is(err, ErrInvalidTransition):
		return NewAppError(err, "invalid stage transition", http.StatusConflict, "INVALID_TRANSITION")
	case errors.Is(err, ErrConflict):
		return ConflictError("resource was modified concurrently")
	case errors.Is(err, ErrAccountLocked):
		return AccountLockedError()
	case errors.Is(err, ErrTokenExpired):
		return TokenExpiredError()
	case errors.Is(err, ErrTokenRevoked):
		return TokenRevokedError()
	case errors.Is(err, ErrTokenInvalid):
		return TokenInvalidError()
	case errors.Is(err, ErrUnauthorized):
		return UnauthorizedError("authentication required")
	case errors.Is(err, ErrStorageTimeout), errors.Is(err, context.DeadlineExceeded):
		return StorageTimeoutError()
	}

	return nil
}
