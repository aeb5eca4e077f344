package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"achievement-service/internal/auth"
	"achievement-service/internal/user"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(f fixture) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := auth.NewHandler(f.svc, logger, false)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(f.svc, logger))
		h.RegisterProtectedRoutes(r)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, f fixture, email, password string) string {
	t.Helper()
	resp, err := f.svc.Login(context.Background(), auth.LoginRequest{Email: email, Password: password})
	require.NoError(t, err)
	return resp.AccessToken
}

func TestHandler_Register(t *testing.T) {
	t.Run("SetsCookieAndReturnsTokens", func(t *testing.T) {
		f := newFixture(t)
		router := newRouter(f)

		w := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]any{
			"name": "Asha", "email": "asha@example.com", "password": "secret1", "department": "CSE",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Success bool              `json:"success"`
			Data    auth.AuthResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Data.AccessToken)
		assert.Equal(t, user.RoleStudent, resp.Data.User.Role)

		cookies := w.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, auth.CookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{not json"))
		w := httptest.NewRecorder()
		newRouter(f).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_Login(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "jane@example.com", "password123", user.RoleStudent, true)
	router := newRouter(f)

	t.Run("Success", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "jane@example.com", "password": "password123",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "jane@example.com", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid email or password")
	})
}

func TestMiddleware(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "jane@example.com", "password123", user.RoleStudent, true)
	router := newRouter(f)

	t.Run("MissingToken", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/auth/profile", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "authentication required")
	})

	t.Run("GarbageToken", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/auth/profile", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("BearerHeader", func(t *testing.T) {
		token := login(t, f, "jane@example.com", "password123")

		w := doJSON(t, router, http.MethodGet, "/auth/profile", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "jane@example.com")
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("Cookie", func(t *testing.T) {
		token := login(t, f, "jane@example.com", "password123")

		req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("DeactivatedAfterIssue", func(t *testing.T) {
		token := login(t, f, "jane@example.com", "password123")
		stored, err := f.users.GetByID(context.Background(), u.ID)
		require.NoError(t, err)
		stored.IsActive = false
		require.NoError(t, f.users.Update(context.Background(), stored, "is_active"))
		t.Cleanup(func() {
			stored.IsActive = true
			_ = f.users.Update(context.Background(), stored, "is_active")
		})

		w := doJSON(t, router, http.MethodGet, "/auth/profile", token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHandler_SetActive(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "admin@example.com", "password123", user.RoleAdmin, true)
	f.addUser(t, "prof@example.com", "password123", user.RoleFaculty, true)
	student := f.addUser(t, "asha@example.com", "password123", user.RoleStudent, true)
	router := newRouter(f)
	path := "/admin/users/" + strconv.FormatInt(student.ID, 10)

	t.Run("FacultyForbidden", func(t *testing.T) {
		token := login(t, f, "prof@example.com", "password123")
		w := doJSON(t, router, http.MethodPut, path, token, map[string]bool{"isActive": false})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("AdminDeactivates", func(t *testing.T) {
		token := login(t, f, "admin@example.com", "password123")
		w := doJSON(t, router, http.MethodPut, path, token, map[string]bool{"isActive": false})
		require.Equal(t, http.StatusOK, w.Code)

		_, err := f.svc.Login(context.Background(), auth.LoginRequest{Email: "asha@example.com", Password: "password123"})
		assert.ErrorIs(t, err, auth.ErrAccountDisabled)
	})

	t.Run("BadID", func(t *testing.T) {
		token := login(t, f, "admin@example.com", "password123")
		w := doJSON(t, router, http.MethodPut, "/admin/users/abc", token, map[string]bool{"isActive": true})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
