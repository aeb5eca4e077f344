package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/apperr"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Allowed lists the proof document types accepted on upload.
var Allowed = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

type Config struct {
	Dir        string
	PublicPath string
	MaxSize    int64
	MaxFiles   int
}

// DiskStore keeps proof files on the local filesystem and serves them under
// PublicPath.
type DiskStore struct {
	cfg    Config
	logger *slog.Logger
}

func NewDiskStore(cfg Config, logger *slog.Logger) (*DiskStore, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 5 << 20
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 5
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = "/uploads"
	}
	cfg.PublicPath = "/" + strings.Trim(cfg.PublicPath, "/")

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{cfg: cfg, logger: logger}, nil
}

// MaxBody is the largest request body a full upload can produce.
func (s *DiskStore) MaxBody() int64 {
	return int64(s.cfg.MaxFiles)*s.cfg.MaxSize + 1<<20
}

// Validate checks count, size and sniffed content type of every file.
func (s *DiskStore) Validate(files []*multipart.FileHeader) error {
	if len(files) > s.cfg.MaxFiles {
		return apperr.Validation(fmt.Sprintf("proofFiles: at most %d files per submission", s.cfg.MaxFiles))
	}
	for _, fh := range files {
		if fh.Size > s.cfg.MaxSize {
			return apperr.Validation(fmt.Sprintf("proofFiles: %s exceeds %d bytes", fh.Filename, s.cfg.MaxSize))
		}
		if _, err := detect(fh); err != nil {
			return err
		}
	}
	return nil
}

func (s *DiskStore) Save(ctx context.Context, fh *multipart.FileHeader) (achievement.ProofFile, error) {
	mt, err := detect(fh)
	if err != nil {
		return achievement.ProofFile{}, err
	}

	src, err := fh.Open()
	if err != nil {
		return achievement.ProofFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := "proof-" + uuid.NewString() + mt.Extension()
	dst, err := os.OpenFile(filepath.Join(s.cfg.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return achievement.ProofFile{}, fmt.Errorf("create proof file: %w", err)
	}

	written, err := io.Copy(dst, io.LimitReader(src, s.cfg.MaxSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.cfg.MaxSize {
		err = apperr.Validation(fmt.Sprintf("proofFiles: %s exceeds %d bytes", fh.Filename, s.cfg.MaxSize))
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.cfg.Dir, name))
		return achievement.ProofFile{}, err
	}

	s.logger.DebugContext(ctx, "proof file stored", "filename", name, "size", written, "content_type", mt.String())

	return achievement.ProofFile{
		Filename:     name,
		OriginalName: filepath.Base(fh.Filename),
		URL:          path.Join(s.cfg.PublicPath, name),
		ContentType:  mt.String(),
		Size:         written,
		UploadedAt:   time.Now().UTC(),
	}, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *DiskStore) Remove(ctx context.Context, filename string) error {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return nil
	}
	err := os.Remove(filepath.Join(s.cfg.Dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// RegisterRoutes serves stored files read-only. Directory listings are disabled.
func (s *DiskStore) RegisterRoutes(router chi.Router) {
	fileServer := http.StripPrefix(s.cfg.PublicPath, http.FileServer(noDirFS{http.Dir(s.cfg.Dir)}))
	router.Get(s.cfg.PublicPath+"/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		fileServer.ServeHTTP(w, r)
	})
}

func detect(fh *multipart.FileHeader) (*mimetype.MIME, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	for _, allowed := range Allowed {
		if mt.Is(allowed) {
			return mt, nil
		}
	}
	return nil, apperr.Validation(fmt.Sprintf("proofFiles: %s has unsupported type %s", fh.Filename, mt.String()))
}

type noDirFS struct {
	fs http.FileSystem
}

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
