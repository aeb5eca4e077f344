package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"achievement-service/internal/httputil"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter per client IP kept in Redis.
// A Redis failure lets the request through.
type RateLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
	logger *slog.Logger
}

func NewRateLimiter(client redis.UniversalClient, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
		logger: logger,
	}
}

// Allow counts one hit for key and reports whether it is within the limit,
// plus how long until the window resets.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	full := rl.prefix + key

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, full)
	pipe.ExpireNX(ctx, full, rl.window)
	ttl := pipe.PTTL(ctx, full)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, err
	}

	retry := ttl.Val()
	if retry < 0 {
		retry = rl.window
	}
	return incr.Val() <= int64(rl.limit), retry, nil
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retry, err := rl.Allow(r.Context(), clientIP(r))
		if err != nil {
			rl.logger.WarnContext(r.Context(), "rate limiter unavailable", "error", err)
		}
		if !ok {
			secs := int(retry.Round(time.Second) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			httputil.RespondWithError(w, http.StatusTooManyRequests, "too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers RemoteAddr as rewritten by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
