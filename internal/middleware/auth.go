// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/carterperez-dev/crm-backend/internal/core"
	"github.com/carterperez-dev/crm-backend/internal/metrics"
)

const principalKey contextKey = "principal"

// Principal is the authenticated caller behind a request.
type Principal struct {
	UserID    string
	SessionID string
	Email     string
}

// SessionAuthenticator verifies a bearer token and confirms its backing
// session is still active.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

type PermissionChecker interface {
	Allowed(ctx context.Context, userID, permission string) (bool, error)
}

// Authenticator resolves the bearer token on every request. Session state
// is checked each time, so a revoked session fails on its next call.
func Authenticator(sessions SessionAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				core.JSONError(w, core.UnauthorizedError("missing authorization token"))
				return
			}

			p, err := sessions.Authenticate(r.Context(), token)
			if err != nil {
				core.JSONError(w, authFailure(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequirePermission rejects the request with 403 before the handler runs
// unless the caller's current roles grant permission.
func RequirePermission(checker PermissionChecker, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if p == nil {
				core.JSONError(w, core.UnauthorizedError("authentication required"))
				return
			}

			allowed, err := checker.Allowed(r.Context(), p.UserID, permission)
			switch {
			case err != nil:
				core.JSONError(w, err)
			case !allowed:
				metrics.ObservePermissionDenied(permission)
				slog.InfoContext(r.Context(), "permission denied",
					"user_id", p.UserID,
					"permission", permission,
					"path", r.URL.Path,
				)
				core.JSONError(w, core.ForbiddenError("insufficient permissions"))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// authFailure maps an Authenticate error to the response the client sees.
// Storage failures stay 5xx so an outage never reads as a bad token.
func authFailure(err error) error {
	var appErr *core.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, core.ErrTokenExpired):
		return core.TokenExpiredError()
	case errors.Is(err, core.ErrTokenRevoked):
		return core.TokenRevokedError()
	case errors.Is(err, core.ErrStorageTimeout), errors.Is(err, core.ErrStorage):
		return err
	default:
		return core.TokenInvalidError()
	}
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func GetPrincipal(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

func GetUserID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.UserID
	}
	return ""
}

func GetSessionID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.SessionID
	}
	return ""
}
