package achievement_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"achievement-service/internal/achievement"
	"achievement-service/internal/auth"
	"achievement-service/internal/policy"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Total   int             `json:"total"`
	Pages   int             `json:"pages"`
}

func setupRouter(f fixture, actor *policy.Actor) *chi.Mux {
	h := achievement.NewHandler(f.svc, slog.New(slog.NewTextHandler(io.Discard, nil)), 1<<20)
	r := chi.NewRouter()
	if actor != nil {
		a := *actor
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(auth.WithActor(req.Context(), a)))
			})
		})
	}
	h.RegisterRoutes(r)
	return r
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHandler_Create(t *testing.T) {
	t.Run("JSONBody", func(t *testing.T) {
		f := newFixture()
		router := setupRouter(f, &student)

		body := `{"title":"Hackathon","category":"Technical","description":"Won","level":"State","date":"2024-01-05","tags":"ai, ml"}`
		req := httptest.NewRequest(http.MethodPost, "/achievements", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		env := decode(t, rec)
		assert.True(t, env.Success)

		var a achievement.Achievement
		require.NoError(t, json.Unmarshal(env.Data, &a))
		assert.Equal(t, 50, a.Points)
		assert.Equal(t, achievement.StatusPending, a.Status)
		assert.Equal(t, []string{"ai", "ml"}, a.Tags)
	})

	t.Run("MultipartWithProof", func(t *testing.T) {
		f := newFixture()
		router := setupRouter(f, &student)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range map[string]string{
			"title":       "Paper",
			"category":    "Research",
			"description": "Published",
			"level":       "International",
			"date":        "2024-06-01",
			"isPublic":    "false",
		} {
			require.NoError(t, mw.WriteField(k, v))
		}
		part, err := mw.CreateFormFile("proofFiles", "paper.pdf")
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 test"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/achievements", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var a achievement.Achievement
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &a))
		assert.Equal(t, 100, a.Points)
		assert.False(t, a.IsPublic)
		require.Len(t, a.ProofFiles, 1)
		assert.Equal(t, "paper.pdf", a.ProofFiles[0].OriginalName)
	})

	t.Run("ValidationErrorEnvelope", func(t *testing.T) {
		f := newFixture()
		router := setupRouter(f, &student)

		req := httptest.NewRequest(http.MethodPost, "/achievements", strings.NewReader(`{"title":""}`))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decode(t, rec)
		assert.False(t, env.Success)
		assert.Equal(t, "validation_error", env.Error)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		f := newFixture()
		router := setupRouter(f, nil)

		req := httptest.NewRequest(http.MethodPost, "/achievements", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandler_ReadPaths(t *testing.T) {
	f := newFixture()
	for i := 0; i < 12; i++ {
		_, err := f.svc.Create(context.Background(), student, validCreate(), nil)
		require.NoError(t, err)
	}

	t.Run("ListMinePaginated", func(t *testing.T) {
		router := setupRouter(f, &student)
		req := httptest.NewRequest(http.MethodGet, "/achievements/my?page=2&limit=5", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		env := decode(t, rec)
		assert.Equal(t, 12, env.Total)
		assert.Equal(t, 3, env.Pages)

		var items []achievement.Achievement
		require.NoError(t, json.Unmarshal(env.Data, &items))
		assert.Len(t, items, 5)
	})

	t.Run("ListMineUnknownStatus", func(t *testing.T) {
		router := setupRouter(f, &student)
		req := httptest.NewRequest(http.MethodGet, "/achievements/my?status=bogus", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "status")
	})

	t.Run("GetForbiddenForOtherStudent", func(t *testing.T) {
		router := setupRouter(f, &other)
		req := httptest.NewRequest(http.MethodGet, "/achievements/1", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("GetBadID", func(t *testing.T) {
		router := setupRouter(f, &student)
		req := httptest.NewRequest(http.MethodGet, "/achievements/abc", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("PendingQueueForStaff", func(t *testing.T) {
		router := setupRouter(f, &faculty)
		req := httptest.NewRequest(http.MethodGet, "/admin/achievements/pending", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 12, decode(t, rec).Total)
	})

	t.Run("PendingQueueForbiddenForStudent", func(t *testing.T) {
		router := setupRouter(f, &student)
		req := httptest.NewRequest(http.MethodGet, "/admin/achievements/pending", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
