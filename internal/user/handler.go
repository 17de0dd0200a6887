// AngelaMos | 2026
// handler.go

package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/crm-backend/internal/core"
	"github.com/carterperez-dev/crm-backend/internal/middleware"
	"github.com/carterperez-dev/crm-backend/internal/rbac"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validator: core.NewValidator()}
}

// RegisterRoutes mounts /users. /users/me only needs a session; everything
// else is gated by the users.* permissions.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	guard func(permission string) func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)

		r.With(guard(rbac.UsersView)).Get("/", h.ListUsers)
		r.With(guard(rbac.UsersCreate)).Post("/", h.CreateUser)

		r.Route("/{userID}", func(r chi.Router) {
			r.With(guard(rbac.UsersView)).Get("/", h.GetUser)
			r.With(guard(rbac.UsersUpdate)).Put("/", h.UpdateUser)
			r.With(guard(rbac.UsersUpdate)).Put("/role", h.AssignRole)
			r.With(guard(rbac.UsersDelete)).Delete("/", h.TerminateUser)
		})
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	writeUser(w, http.StatusOK, u, err)
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	self := middleware.GetUserID(r.Context())
	u, err := h.service.UpdateUser(r.Context(), self, self, req)
	writeUser(w, http.StatusOK, u, err)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListUsersParams{
		PageParams: core.PageParamsFromRequest(r),
		Search:     q.Get("search"),
		Status:     q.Get("status"),
		Role:       q.Get("role"),
	}

	users, total, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.Paginated(w, "users", ToUserResponseList(users), params.Page, params.PageSize, total)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	u, err := h.service.CreateUser(r.Context(), middleware.GetUserID(r.Context()), req)
	if errors.Is(err, core.ErrDuplicateKey) {
		err = core.DuplicateError("email")
	}
	writeUser(w, http.StatusCreated, u, err)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "userID", "user")
	if !ok {
		return
	}

	u, err := h.service.GetUser(r.Context(), id)
	writeUser(w, http.StatusOK, u, err)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "userID", "user")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	u, err := h.service.UpdateUser(
		r.Context(),
		middleware.GetUserID(r.Context()),
		id,
		req,
	)
	writeUser(w, http.StatusOK, u, err)
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "userID", "user")
	if !ok {
		return
	}

	var req AssignRoleRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	u, err := h.service.AssignRole(
		r.Context(),
		middleware.GetUserID(r.Context()),
		id,
		req,
	)
	if errors.Is(err, core.ErrConflict) {
		err = core.ConflictError("user is not active")
	}
	writeUser(w, http.StatusOK, u, err)
}

// TerminateUser disables the account and revokes every session it holds.
// Callers cannot terminate themselves.
func (h *Handler) TerminateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "userID", "user")
	if !ok {
		return
	}

	err := h.service.TerminateUser(
		r.Context(),
		middleware.GetUserID(r.Context()),
		id,
	)
	switch {
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "cannot terminate your own account")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case err != nil:
		core.JSONError(w, err)
	default:
		core.NoContent(w)
	}
}

func writeUser(w http.ResponseWriter, status int, u *User, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case err != nil:
		core.JSONError(w, err)
	default:
		core.Respond(w, status, map[string]any{"data": ToUserResponse(u)})
	}
}
