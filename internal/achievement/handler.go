package achievement

import (
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"achievement-service/internal/apperr"
	"achievement-service/internal/auth"
	"achievement-service/internal/httputil"
	"achievement-service/internal/user"

	"github.com/go-chi/chi/v5"
)

const (
	proofFilesField   = "proofFiles"
	multipartMemory   = 8 << 20
	defaultUploadBody = 32 << 20
)

type Handler struct {
	service *Service
	logger  *slog.Logger
	maxBody int64
}

// NewHandler builds the achievement HTTP handler. maxBody caps a whole
// request body including every proof file.
func NewHandler(service *Service, logger *slog.Logger, maxBody int64) *Handler {
	if maxBody <= 0 {
		maxBody = defaultUploadBody
	}
	return &Handler{
		service: service,
		logger:  logger,
		maxBody: maxBody,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/achievements", h.Create)
	router.Get("/achievements/my", h.ListMine)
	router.Get("/achievements/{id}", h.Get)
	router.Put("/achievements/{id}", h.Update)
	router.Delete("/achievements/{id}", h.Delete)

	router.Get("/admin/achievements", h.ListAll)
	router.Get("/admin/achievements/pending", h.ListPending)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var (
		req   CreateRequest
		files []*multipart.FileHeader
	)
	if isMultipart(r) {
		form, err := h.parseMultipart(w, r)
		if err != nil {
			httputil.RespondWithServiceError(w, r, h.logger, err)
			return
		}
		req = CreateRequest{
			Title:       form.value("title"),
			Category:    form.value("category"),
			Description: form.value("description"),
			Level:       form.value("level"),
			Date:        form.value("date"),
			Institution: form.value("institution"),
			Tags:        ParseTags(form.value("tags")),
		}
		if req.IsPublic, err = form.boolPtr("isPublic"); err != nil {
			httputil.RespondWithServiceError(w, r, h.logger, err)
			return
		}
		files = form.files
	} else if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	a, err := h.service.Create(r.Context(), actor, req, files)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusCreated, "achievement submitted, awaiting verification", a)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()
	page, err := h.service.ListMine(r.Context(), actor, ListFilter{
		Status:   Status(q.Get("status")),
		Category: q.Get("category"),
		Level:    q.Get("level"),
		Search:   strings.TrimSpace(q.Get("search")),
		Page:     httputil.QueryInt(r, "page"),
		Limit:    httputil.QueryInt(r, "limit"),
	})
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithPage(w, page.Items, page.Total, page.Page, page.Limit, page.Pages)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
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

	a, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "", a)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
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

	var (
		req   UpdateRequest
		files []*multipart.FileHeader
	)
	if isMultipart(r) {
		form, err := h.parseMultipart(w, r)
		if err != nil {
			httputil.RespondWithServiceError(w, r, h.logger, err)
			return
		}
		req = UpdateRequest{
			Title:       form.stringPtr("title"),
			Category:    form.stringPtr("category"),
			Description: form.stringPtr("description"),
			Level:       form.stringPtr("level"),
			Date:        form.stringPtr("date"),
			Institution: form.stringPtr("institution"),
		}
		if raw := form.stringPtr("tags"); raw != nil {
			tags := ParseTags(*raw)
			req.Tags = &tags
		}
		if req.IsPublic, err = form.boolPtr("isPublic"); err != nil {
			httputil.RespondWithServiceError(w, r, h.logger, err)
			return
		}
		files = form.files
	} else if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	a, err := h.service.Update(r.Context(), actor, id, req, files)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "achievement updated", a)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "achievement deleted", nil)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.listAdmin(w, r, false)
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.listAdmin(w, r, true)
}

func (h *Handler) listAdmin(w http.ResponseWriter, r *http.Request, pendingOnly bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()
	filter := AdminFilter{
		Status:     Status(q.Get("status")),
		Category:   q.Get("category"),
		Department: user.Department(q.Get("department")),
		Search:     strings.TrimSpace(q.Get("search")),
		Page:       httputil.QueryInt(r, "page"),
		Limit:      httputil.QueryInt(r, "limit"),
	}

	list := h.service.ListAll
	if pendingOnly {
		list = h.service.ListPending
	}
	page, err := list(r.Context(), actor, filter)
	if err != nil {
		httputil.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	views := make([]View, len(page.Items))
	for i := range page.Items {
		views[i] = page.Items[i].View()
	}
	httputil.RespondWithPage(w, views, page.Total, page.Page, page.Limit, page.Pages)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

type multipartForm struct {
	values map[string][]string
	files  []*multipart.FileHeader
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipartForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, apperr.Validation("invalid multipart body: upload too large or malformed")
	}
	return &multipartForm{
		values: r.MultipartForm.Value,
		files:  r.MultipartForm.File[proofFilesField],
	}, nil
}

func (f *multipartForm) value(key string) string {
	if v := f.values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// stringPtr distinguishes an absent field from an empty one.
func (f *multipartForm) stringPtr(key string) *string {
	v, ok := f.values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	return &v[0]
}

func (f *multipartForm) boolPtr(key string) (*bool, error) {
	raw := f.stringPtr(key)
	if raw == nil || *raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(*raw)
	if err != nil {
		return nil, apperr.Validation(key + ": must be true or false")
	}
	return &b, nil
}
