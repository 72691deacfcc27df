package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is a self-hosted relay: it serves a local staging directory over
// HTTP so deployments without a hosting-relay key can expose staged inputs
// directly. The host must be reachable from the generation service for this
// to work.
type Server struct {
	dir     string
	baseURL string
}

// NewServer creates a Server publishing dir under baseURL (the externally
// reachable address, e.g. http://203.0.113.9:8780).
func NewServer(dir, baseURL string) *Server {
	return &Server{dir: dir, baseURL: baseURL}
}

// Handler returns the chi router serving the staged assets read-only.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	fs := http.StripPrefix("/assets/", http.FileServer(http.Dir(s.dir)))
	r.Method(http.MethodGet, "/assets/*", fs)

	return r
}

// Publish implements ports.Uploader by copying localPath into the staging
// directory and returning the URL it is served under.
func (s *Server) Publish(ctx context.Context, localPath string) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	name := assetName(localPath)
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open asset %s: %w", localPath, err)
	}
	defer src.Close()

	dest, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("stage asset: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return "", fmt.Errorf("stage asset: %w", err)
	}
	return s.baseURL + "/assets/" + name, nil
}

// ListenAndServe blocks serving the relay until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
