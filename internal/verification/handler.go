package verification

import (
	"fmt"
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
	router.Put("/admin/achievements/{id}/verify", h.Verify)
	router.Get("/achievements/{id}/verifications", h.History)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
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

	var req VerifyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	result, err := h.service.Verify(r.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, fmt.Sprintf("achievement %s successfully", result.Record.Action), result)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
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

	records, err := h.service.History(r.Context(), actor, id)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "", records)
}
