package event

import (
	"log/slog"
	"net/http"

	"achievement-service/internal/auth"
	"achievement-service/internal/httputil"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/events", h.List)
	router.Post("/events", h.Create)
	router.Put("/events/{id}", h.Update)
	router.Delete("/events/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), ListFilter{Category: r.URL.Query().Get("category")})
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	views := make([]View, len(list))
	for i := range list {
		views[i] = list[i].View()
	}
	httputil.RespondWithData(w, http.StatusOK, "", views)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	e, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusCreated, "event created and students notified", e)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	var req UpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	e, err := h.service.Update(r.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "event updated", e)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "event removed", nil)
}
