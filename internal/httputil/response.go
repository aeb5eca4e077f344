package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"achievement-service/internal/apperr"

	"github.com/go-chi/chi/v5"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PageEnvelope is Envelope plus pagination fields for list endpoints.
type PageEnvelope struct {
	Envelope
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// RespondWithError writes an error response in JSON format
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Envelope{Success: false, Message: message, Error: apperr.Code(code)})
}

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithData wraps data in a success envelope.
func RespondWithData(w http.ResponseWriter, code int, message string, data any) {
	RespondWithJSON(w, code, Envelope{Success: true, Message: message, Data: data})
}

// RespondWithPage writes a paginated success envelope.
func RespondWithPage(w http.ResponseWriter, data any, total, page, limit, pages int) {
	RespondWithJSON(w, http.StatusOK, PageEnvelope{
		Envelope: Envelope{Success: true, Data: data},
		Total:    total,
		Page:     page,
		Limit:    limit,
		Pages:    pages,
	})
}

// RespondWithServiceError maps a service error to its HTTP status. Server
// side failures are logged with detail and answered with a generic message.
func RespondWithServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := apperr.Status(err)
	switch {
	case code >= http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", code, "error", err)
		msg := "internal server error"
		if code == http.StatusServiceUnavailable {
			msg = "service temporarily unavailable"
		}
		RespondWithError(w, code, msg)
	default:
		logger.InfoContext(r.Context(), "request rejected", "path", r.URL.Path, "status", code, "reason", err.Error())
		RespondWithError(w, code, err.Error())
	}
}

// DecodeJSON decodes the request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

// IDParam parses a positive integer URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid " + name)
	}
	return id, nil
}

// QueryInt returns the integer query value for key, or 0 when absent or malformed.
func QueryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
