package notice

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
	router.Get("/notices", h.List)
	router.Post("/notices", h.Create)
	router.Delete("/notices/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	notices, err := h.service.List(r.Context())
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	views := make([]View, len(notices))
	for i := range notices {
		views[i] = notices[i].View()
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

	n, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusCreated, "notice posted and students notified", n)
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
	httputil.RespondWithData(w, http.StatusOK, "notice deleted", nil)
}
