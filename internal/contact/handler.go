// AngelaMos | 2026
// handler.go

package contact

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
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	guard func(permission string) func(http.Handler) http.Handler,
) {
	r.Route("/contacts", func(r chi.Router) {
		r.Use(authenticator)

		r.With(guard(rbac.ContactsView)).Get("/", h.List)
		r.With(guard(rbac.ContactsCreate)).Post("/", h.Create)
		r.With(guard(rbac.ContactsView)).Get("/{contactID}", h.Get)
		r.With(guard(rbac.ContactsUpdate)).Put("/{contactID}", h.Update)
		r.With(guard(rbac.ContactsDelete)).Delete("/{contactID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		PageParams: core.PageParamsFromRequest(r),
		Search:     r.URL.Query().Get("search"),
		Category:   r.URL.Query().Get("category"),
	}

	contacts, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Paginated(
		w,
		"contacts",
		ToContactResponseList(contacts),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateContactRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToContactResponse(c))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "contactID", "contact")
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeContactError(w, err)
		return
	}

	core.OK(w, ToContactResponse(c))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "contactID", "contact")
	if !ok {
		return
	}

	var req UpdateContactRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	c, err := h.service.Update(
		r.Context(),
		middleware.GetUserID(r.Context()),
		id,
		req,
	)
	if err != nil {
		writeContactError(w, err)
		return
	}

	core.OK(w, ToContactResponse(c))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "contactID", "contact")
	if !ok {
		return
	}

	err := h.service.Delete(
		r.Context(),
		middleware.GetUserID(r.Context()),
		id,
	)
	if err != nil {
		writeContactError(w, err)
		return
	}

	core.NoContent(w)
}

func writeContactError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "contact")
		return
	}
	core.JSONError(w, err)
}
