// Package server serves the build directory for local development with
// LiveReload and a Prometheus endpoint.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
	"github.com/maxkimambo/sitepipe/internal/logger"
	"github.com/maxkimambo/sitepipe/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// Dir is the directory served at /.
	Dir string
	// Addr is the listen address, host:port.
	Addr string
	// LiveReload enables the /livereload endpoints and script injection.
	LiveReload bool
	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
	// Recorder receives LiveReload metrics.
	Recorder metrics.Recorder
}

// Server is the development HTTP server.
type Server struct {
	opts Options
	hub  *Hub

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server. It does not listen until Start.
func New(opts Options) *Server {
	return &Server{
		opts: opts,
		hub:  NewHub(opts.Recorder),
	}
}

// Hub returns the LiveReload hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Reload tells connected browsers that path changed.
func (s *Server) Reload(path string) {
	if !s.opts.LiveReload {
		return
	}
	s.hub.Reload(path)
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	static := http.Handler(http.FileServer(http.Dir(s.opts.Dir)))

	if s.opts.LiveReload {
		mux.Handle("/livereload", s.hub)
		mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			_, _ = w.Write([]byte(clientScript))
		})
		static = injectScript(static)
	}
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics)
	}
	mux.Handle("/", noCache(static))
	return mux
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// Addr returns the bound address once Start is listening, or the
// configured address before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return buildErrors.NewListenError(s.opts.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.User.Servef("Serving %s at http://%s", s.opts.Dir, ln.Addr())
	if s.opts.LiveReload {
		logger.Op.Debug("LiveReload enabled at /livereload")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.hub.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Op.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("Development server shutdown error")
		return err
	}
	logger.User.Info("Development server stopped")
	return nil
}
