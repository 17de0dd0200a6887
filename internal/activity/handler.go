// AngelaMos | 2026
// handler.go

package activity

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	canView func(http.Handler) http.Handler,
) {
	r.Route("/activities", func(r chi.Router) {
		r.Use(authenticator)
		r.With(canView).Get("/", h.List)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := Filter{
		SubjectType: q.Get("subject_type"),
		SubjectID:   q.Get("subject_id"),
		Type:        q.Get("type"),
		Order:       q.Get("order"),
	}

	actorID, err := core.QueryUUID(r, "actor_id")
	if err != nil {
		core.JSONError(w, err)
		return
	}
	filter.ActorID = actorID

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			core.JSONError(w, core.InvalidField("limit", "must be a number"))
			return
		}
		filter.Limit = limit
	}

	if filter.Since, err = parseTimeQuery(r, "since"); err != nil {
		core.JSONError(w, err)
		return
	}
	if filter.Until, err = parseTimeQuery(r, "until"); err != nil {
		core.JSONError(w, err)
		return
	}

	entries, err := h.service.Query(r.Context(), filter)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Respond(w, http.StatusOK, map[string]any{
		"activities": ToEntryResponseList(entries),
		"count":      len(entries),
	})
}

func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, core.InvalidField(key, "must be an RFC3339 timestamp")
	}
	return &t, nil
}
