// Package server exposes the scene over HTTP: a JSON control API, the particle
// WebSocket stream, the camera preview and the web client's static files.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ayusman/gestureart/internal/session"
)

// Config holds the server configuration. Scene routes are registered only when
// Scene is set; camera routes additionally need Tracker.
type Config struct {
	StaticDir string
	Scene     *session.Controller
	Tracker   *session.Tracker
	Logger    *log.Logger
}

// Server is the HTTP front end.
type Server struct {
	config Config
	router chi.Router
	hub    *Hub
	logger *log.Logger
	start  time.Time

	// ctx outlives requests; tracking started over HTTP is bound to it.
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds the router. When a scene is configured the particle hub is
// attached to it immediately.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		logger: config.Logger.WithPrefix("http"),
		start:  time.Now(),
		ctx:    ctx,
		cancel: cancel,
	}

	if config.Scene != nil {
		s.hub = NewHub(ctx, config.Scene, config.Tracker, config.Logger)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/api/health", s.handleHealth)

	if s.config.Scene != nil {
		r.Get("/api/state", s.handleState)
		r.Put("/api/formation", s.handleFormation)
		r.Put("/api/theme", s.handleTheme)
		r.Post("/api/theme/next", s.handleNextTheme)
		r.Post("/api/camera/start", s.handleCameraStart)
		r.Post("/api/camera/stop", s.handleCameraStop)
		r.Get("/api/particles", s.hub.ServeHTTP)
	}

	if s.config.Tracker != nil {
		r.Get("/api/stream", NewStreamHandler(s.ctx, s.config.Tracker).ServeHTTP)
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hub returns the particle hub, or nil without a scene.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close detaches the hub and disconnects its clients.
func (s *Server) Close() {
	s.cancel()
	if s.hub != nil {
		s.hub.Close()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}
