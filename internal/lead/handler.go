// AngelaMos | 2026
// handler.go

package lead

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

	// convertGuard enforces leads.convert on transitions into the converted
	// stage, which reach the same conversion path as /convert.
	convertGuard func(http.Handler) http.Handler
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
	h.convertGuard = guard(rbac.LeadsConvert)

	r.Route("/leads", func(r chi.Router) {
		r.Use(authenticator)

		r.With(guard(rbac.LeadsView)).Get("/", h.List)
		r.With(guard(rbac.LeadsCreate)).Post("/", h.Create)
		r.With(guard(rbac.LeadsView)).Get("/sources", h.ListSources)
		r.With(guard(rbac.LeadsView)).Get("/statuses", h.ListStatuses)

		r.Route("/{leadID}", func(r chi.Router) {
			r.With(guard(rbac.LeadsView)).Get("/", h.Get)
			r.With(guard(rbac.LeadsUpdate)).Put("/", h.Update)
			r.With(guard(rbac.LeadsDelete)).Delete("/", h.Delete)
			r.With(guard(rbac.LeadsUpdate)).Post("/transition", h.Transition)
			r.With(guard(rbac.LeadsView)).Get("/activities", h.ListActivities)
			r.With(guard(rbac.LeadsUpdate)).Post("/activities", h.AppendActivity)
			r.With(guard(rbac.LeadsConvert)).Post("/convert", h.Convert)
			r.With(guard(rbac.LeadsUpdate)).Post("/score", h.Rescore)
		})
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := core.PageParamsFromRequest(r)
	if limit := core.QueryInt(r, "limit", 0); limit > 0 && q.Get("page_size") == "" {
		page.PageSize = limit
		page.Normalize()
	}

	sourceID, err := core.QueryUUID(r, "source")
	if err != nil {
		core.JSONError(w, err)
		return
	}
	assignedTo, err := core.QueryUUID(r, "assigned_to")
	if err != nil {
		core.JSONError(w, err)
		return
	}

	params := ListParams{
		PageParams:  page,
		Search:      q.Get("search"),
		Status:      q.Get("status"),
		SourceID:    sourceID,
		AssignedTo:  assignedTo,
		Temperature: q.Get("temperature"),
		Priority:    q.Get("priority"),
		SortBy:      q.Get("sort_by"),
		SortOrder:   q.Get("sort_order"),
	}

	leads, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Paginated(
		w,
		"leads",
		ToLeadResponseList(leads, h.service.Pipeline(), h.service.Now()),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	lead, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, h.toResponse(lead))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "leadID", "lead")
	if !ok {
		return
	}

	lead, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	core.OK(w, h.toResponse(lead))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "leadID", "lead")
	if !ok {
		return
	}

	var req UpdateLeadRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	lead, err := h.service.Update(
		r.Context(),
		middleware.GetUserID(r.Context()),
		id,
		req,
	)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	core.OK(w, h.toResponse(lead))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "leadID", "lead")
	if !ok {
		return
	}

	err := h.service.Delete(
		r.Context(),
		middleware.GetUserID(r.Context()),
		id,
	)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "leadID", "lead")
	if !ok {
		return
	}

	var req TransitionRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if req.ToStatus != h.service.Pipeline().ConvertedStage() {
		h.transition(w, r, id, req)
		return
	}
	if h.convertGuard == nil {
		core.Forbidden(w, "insufficient permissions")
		return
	}
	h.convertGuard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.transition(w, r, id, req)
	})).ServeHTTP(w, r)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, id string, req TransitionRequest) {
	lead, err := h.service.Transition(
		r.Context(),
		middleware.GetUserID(r.Context()),
		id,
		req,
	)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	core.OK(w, h.toResponse(lead))
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "leadID", "lead")
	if !ok {
		return
	}

	var req ConvertRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	lead, err := h.service.Convert(
		r.Context(),
		middleware.GetUserID(r.Context()),
		id,
		req,
	)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	core.OK(w, h.toResponse(lead))
}

func (h *Handler) AppendActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "leadID", "lead")
	if !ok {
		return
	}

	var req ActivityRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	entry, lead, err := h.service.AppendActivity(
		r.Context(),
		middleware.GetUserID(r.Context()),
		id,
		req,
	)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	core.Respond(w, http.StatusCreated, map[string]any{
		"activity":   ToActivityResponse(entry),
		"lead_score": lead.Score,
	})
}

func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "leadID", "lead")
	if !ok {
		return
	}

	activities, err := h.service.ListActivities(r.Context(), id)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	core.Respond(w, http.StatusOK, map[string]any{
		"activities": ToActivityResponseList(activities),
	})
}

func (h *Handler) Rescore(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathUUID(w, r, "leadID", "lead")
	if !ok {
		return
	}

	lead, err := h.service.Rescore(
		r.Context(),
		middleware.GetUserID(r.Context()),
		id,
	)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	core.Respond(w, http.StatusOK, map[string]any{
		"lead_id":   lead.ID,
		"score":     lead.Score,
		"scored_at": lead.UpdatedAt,
	})
}

func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.ListSources(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Respond(w, http.StatusOK, map[string]any{
		"sources": ToSourceResponseList(sources),
	})
}

func (h *Handler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.ListStatuses(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Respond(w, http.StatusOK, map[string]any{
		"statuses": ToStatusResponseList(statuses),
	})
}

func (h *Handler) toResponse(l *Lead) LeadResponse {
	return ToLeadResponse(l, h.service.Pipeline(), h.service.Now())
}

func writeLeadError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "lead")
		return
	}
	core.JSONError(w, err)
}
