// AngelaMos | 2026
// handler.go

package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type Handler struct {
	resolver *Resolver
}

func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	canView func(http.Handler) http.Handler,
) {
	r.Route("/roles", func(r chi.Router) {
		r.Use(authenticator)
		r.With(canView).Get("/", h.ListRoles)
	})
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.resolver.ListRoles(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	out := make([]RoleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, ToRoleResponse(&roles[i]))
	}

	core.Respond(w, http.StatusOK, map[string]any{"roles": out})
}
