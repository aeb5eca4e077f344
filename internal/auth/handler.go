package auth

import (
	"log/slog"
	"net/http"

	"achievement-service/internal/httputil"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service       *Service
	logger        *slog.Logger
	secureCookies bool
}

func NewHandler(service *Service, logger *slog.Logger, secureCookies bool) *Handler {
	return &Handler{
		service:       service,
		logger:        logger,
		secureCookies: secureCookies,
	}
}

// RegisterRoutes mounts the unauthenticated auth endpoints.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/register", h.Register)
	router.Post("/auth/login", h.Login)
	router.Post("/auth/refresh", h.Refresh)
	router.Post("/auth/logout", h.Logout)
	router.Post("/auth/forgot-password", h.ForgotPassword)
	router.Put("/auth/reset-password/{token}", h.ResetPassword)
}

// RegisterProtectedRoutes mounts endpoints that need an authenticated actor.
func (h *Handler) RegisterProtectedRoutes(router chi.Router) {
	router.Get("/auth/profile", h.Profile)
	router.Put("/auth/profile", h.UpdateProfile)
	router.Put("/auth/change-password", h.ChangePassword)
	router.Put("/admin/users/{id}", h.SetActive)
}

// Register creates a new student account
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	SetAuthCookie(w, resp.AccessToken, int(h.service.issuer.TTL().Seconds()), h.secureCookies)
	httputil.RespondWithData(w, http.StatusCreated, "registration successful", resp)
}

// Login authenticates a user
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user logged in", "user_id", resp.User.ID, "role", resp.User.Role)

	SetAuthCookie(w, resp.AccessToken, int(h.service.issuer.TTL().Seconds()), h.secureCookies)
	httputil.RespondWithData(w, http.StatusOK, "login successful", resp)
}

// Refresh rotates the refresh token and issues a new access token
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	if req.RefreshToken == "" {
		httputil.RespondWithError(w, http.StatusBadRequest, "refreshToken: is required")
		return
	}

	resp, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	SetAuthCookie(w, resp.AccessToken, int(h.service.issuer.TTL().Seconds()), h.secureCookies)
	httputil.RespondWithData(w, http.StatusOK, "", resp)
}

// Logout invalidates the refresh token
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	ClearAuthCookie(w, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	httputil.RespondWithData(w, http.StatusOK, "if the email is registered, a reset link has been sent", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	httputil.RespondWithData(w, http.StatusOK, "password reset successful", nil)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	profile, err := h.service.Profile(r.Context(), actor)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "", profile)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), actor, req)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "profile updated", profile)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), actor, req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "password changed", nil)
}

// SetActive lets an admin activate or deactivate an account.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	var req SetActiveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	updated, err := h.service.SetActive(r.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "user updated", updated)
}
