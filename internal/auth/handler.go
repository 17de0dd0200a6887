// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/crm-backend/internal/core"
	"github.com/carterperez-dev/crm-backend/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validator: core.NewValidator()}
}

// RegisterRoutes mounts the credential endpoints behind loginLimiter and the
// session endpoints behind authenticator.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	loginLimiter func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimiter).Post("/login", h.Login)
		r.With(loginLimiter).Post("/register", h.Register)
		r.With(loginLimiter).Post("/forgot-password", h.ForgotPassword)
		r.With(loginLimiter).Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", authed(h.GetMe))
			r.Get("/permissions", authed(h.GetPermissions))
			r.Post("/logout", authed(h.Logout))
			r.Post("/logout-all", authed(h.LogoutAll))
			r.Get("/sessions", authed(h.GetSessions))
			r.Delete("/sessions/{sessionID}", authed(h.RevokeSession))
			r.Post("/change-password", authed(h.ChangePassword))
		})
	})
}

type principalHandler func(http.ResponseWriter, *http.Request, *middleware.Principal)

// authed resolves the principal placed by the authenticator.
func authed(next principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := middleware.GetPrincipal(r.Context())
		if p == nil {
			core.Unauthorized(w, "")
			return
		}
		next(w, r, p)
	}
}

// fail rewrites the auth package's sentinel errors into client facing ones.
// badCredentials is the message used for ErrInvalidCredentials.
func fail(w http.ResponseWriter, err error, badCredentials string) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		err = core.UnauthorizedError(badCredentials)
	case errors.Is(err, ErrRegistrationDisabled):
		err = core.ForbiddenError("registration is disabled")
	case errors.Is(err, core.ErrDuplicateKey):
		err = core.DuplicateError("email")
	case errors.Is(err, core.ErrForbidden):
		err = core.ForbiddenError("cannot revoke another user's session")
	}
	core.JSONError(w, err)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req, clientInfo(r))
	if err != nil {
		fail(w, err, "invalid email or password")
		return
	}
	core.OK(w, resp)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), req, clientInfo(r))
	if err != nil {
		fail(w, err, "")
		return
	}
	core.Created(w, resp)
}

// ForgotPassword answers identically whether or not the email is known.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	h.service.ForgotPassword(r.Context(), req.Email)
	core.Message(w, "if the account exists, a reset link has been sent")
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		fail(w, err, "")
		return
	}
	core.Message(w, "password has been reset")
}

// Logout revokes the caller's session, or the one named by session_token.
// The body is optional.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, p *middleware.Principal) {
	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.JSONError(w, core.FirstValidationError(err))
		return
	}

	if err := h.service.Logout(r.Context(), p, req.SessionToken); err != nil {
		fail(w, err, "")
		return
	}
	core.NoContent(w)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request, p *middleware.Principal) {
	if err := h.service.LogoutAll(r.Context(), p.UserID); err != nil {
		fail(w, err, "")
		return
	}
	core.NoContent(w)
}

func (h *Handler) GetSessions(w http.ResponseWriter, r *http.Request, p *middleware.Principal) {
	sessions, err := h.service.ListSessions(r.Context(), p.UserID, p.SessionID)
	if err != nil {
		fail(w, err, "")
		return
	}
	core.Respond(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request, p *middleware.Principal) {
	id, ok := core.PathUUID(w, r, "sessionID", "session")
	if !ok {
		return
	}

	err := h.service.RevokeSession(r.Context(), p.UserID, id)
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "session")
		return
	}
	if err != nil {
		fail(w, err, "")
		return
	}
	core.NoContent(w)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request, p *middleware.Principal) {
	var req ChangePasswordRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), p.UserID, req); err != nil {
		fail(w, err, "current password is incorrect")
		return
	}
	core.NoContent(w)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request, p *middleware.Principal) {
	me, err := h.service.Me(r.Context(), p.UserID)
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "user")
		return
	}
	if err != nil {
		fail(w, err, "")
		return
	}
	core.OK(w, me)
}

func (h *Handler) GetPermissions(w http.ResponseWriter, r *http.Request, p *middleware.Principal) {
	perms, err := h.service.Permissions(r.Context(), p.UserID)
	if err != nil {
		fail(w, err, "")
		return
	}
	core.Respond(w, http.StatusOK, map[string]any{"permissions": perms})
}

func clientInfo(r *http.Request) ClientInfo {
	return ClientInfo{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
