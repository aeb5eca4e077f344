package portfolio

import (
	"log/slog"
	"net/http"

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

// RegisterRoutes mounts the public portfolio route. It needs no auth.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/portfolio/{userID}", h.Get)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "userID")
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "", p)
}
