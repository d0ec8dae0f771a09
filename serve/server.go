// Package serve exposes the container supervisor over an authenticated
// HTTP API.
package serve

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mvdwal/stevedore"
)

// Core is the supervisor surface the HTTP layer drives.
type Core interface {
	Create(ctx context.Context, opts stevedore.CreateOptions) error
	State(name string) (stevedore.ContainerRecord, error)
	Stop(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
	Logs(ctx context.Context, name string) (string, error)
	Download(ctx context.Context, name, containerPath, hostDir string) (string, error)
}

// ImageStore lists and pulls container images.
type ImageStore interface {
	Images(ctx context.Context) ([]string, error)
	Pull(ctx context.Context, ref string) (string, error)
}

// Server is the HTTP server for the container control API.
type Server struct {
	core   Core
	images ImageStore
	cfg    Config
	logger *slog.Logger
}

// New creates a Server over the given supervisor and image store.
func New(core Core, images ImageStore, cfg Config) *Server {
	return &Server{
		core:   core,
		images: images,
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// Handler builds the full route table and middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return corsMiddleware(s.requestLogMiddleware(mux))
}

// registerRoutes adds all API routes to the mux. Everything except the
// liveness root requires basic auth.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /protected", s.requireAuth(s.handleProtected))

	mux.HandleFunc("GET /images", s.requireAuth(s.handleListImages))
	mux.HandleFunc("POST /images/pull", s.requireAuth(s.handlePullImage))

	mux.HandleFunc("POST /containers/create", s.requireAuth(s.handleCreateContainer))
	mux.HandleFunc("GET /containers/{name}/state", s.requireAuth(s.handleContainerState))
	mux.HandleFunc("GET /containers/{name}/logs", s.requireAuth(s.handleContainerLogs))
	mux.HandleFunc("POST /containers/{name}/download", s.requireAuth(s.handleDownload))
	mux.HandleFunc("POST /containers/stop", s.requireAuth(s.handleStopContainer))
	mux.HandleFunc("POST /containers/delete", s.requireAuth(s.handleDeleteContainer))
}

// Start listens for HTTP requests until ctx is cancelled, then shuts the
// server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server shutdown error", "error", err)
	}

	return nil
}
