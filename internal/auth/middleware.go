package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"achievement-service/internal/apperr"
	"achievement-service/internal/httputil"
	"achievement-service/internal/policy"
)

type contextKey string

const actorKey contextKey = "actor"

// Authenticator turns an access token into the acting user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (policy.Actor, error)
}

// Middleware requires a valid access token from the Authorization header or
// the token cookie and stores the resolved actor in the request context.
func Middleware(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				logger.DebugContext(r.Context(), "no credentials on request", "path", r.URL.Path)
				httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			actor, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				status := apperr.Status(err)
				if status >= http.StatusInternalServerError {
					httputil.RespondWithServiceError(w, r, logger, err)
					return
				}
				logger.InfoContext(r.Context(), "authentication rejected", "path", r.URL.Path, "reason", err.Error())
				httputil.RespondWithError(w, status, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (policy.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(policy.Actor)
	return actor, ok
}

// CookieName is the HttpOnly cookie carrying the access token.
const CookieName = "token"

// SetAuthCookie sets JWT token in secure HttpOnly cookie
func SetAuthCookie(w http.ResponseWriter, token string, maxAge int, secure bool) {
	sameSite := http.SameSiteStrictMode
	if !secure {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Path:     "/",
		MaxAge:   maxAge,
	})
}

// ClearAuthCookie removes the auth cookie
func ClearAuthCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
