package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"achievement-service/internal/httputil"
	"achievement-service/internal/metrics"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 2 * time.Second

// Pinger is any dependency that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function, e.g. (*bun.DB).PingContext.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handler struct {
	deps    map[string]Pinger
	version string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewHandler(deps map[string]Pinger, version string, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		deps:    deps,
		version: version,
		logger:  logger,
		metrics: m,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

type Response struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Health is liveness only and never touches dependencies.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, Response{Status: "ok", Version: h.version})
}

// Ready pings every dependency and answers 503 if any of them is down.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := Response{Status: "ready", Dependencies: make(map[string]string, len(h.deps))}
	code := http.StatusOK
	for name, dep := range h.deps {
		start := time.Now()
		err := dep.Ping(ctx)
		h.metrics.Health.RecordDependencyCheck(ctx, name, time.Since(start), err)

		if err != nil {
			h.logger.WarnContext(ctx, "dependency not ready", "dependency", name, "error", err)
			resp.Dependencies[name] = "down"
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[name] = "up"
	}
	httputil.RespondWithJSON(w, code, resp)
}
