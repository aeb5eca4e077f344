package report

import (
	"log/slog"
	"net/http"

	"achievement-service/internal/auth"
	"achievement-service/internal/httputil"
	"achievement-service/internal/user"

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
	router.Get("/admin/dashboard", h.Dashboard)
	router.Get("/admin/reports", h.Reports)
	router.Get("/admin/students", h.Students)
	router.Get("/achievements/stats", h.StudentStats)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	d, err := h.service.Dashboard(r.Context(), actor)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "", d)
}

func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rep, err := h.service.Reports(r.Context(), actor)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "", rep)
}

func (h *Handler) Students(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()
	filter := user.StudentFilter{
		Department: user.Department(q.Get("department")),
		Batch:      q.Get("batch"),
		Semester:   httputil.QueryInt(r, "semester"),
		Search:     q.Get("search"),
		Page:       httputil.QueryInt(r, "page"),
		Limit:      httputil.QueryInt(r, "limit"),
	}

	result, err := h.service.Students(r.Context(), actor, filter)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithPage(w, result.Items, result.Total, result.Page, result.Limit, result.Pages)
}

func (h *Handler) StudentStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	overview, err := h.service.StudentStats(r.Context(), actor)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "", overview)
}
