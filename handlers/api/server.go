// handlers/api/server.go
package api

import (
	"context"
	"io/fs"
	"net/http"
	"runtime"
	"time"

	"github.com/nijaru/yt-recap/config"
	"github.com/nijaru/yt-recap/middleware"
	"github.com/nijaru/yt-recap/models"
	"github.com/nijaru/yt-recap/services/recap"
	"github.com/nijaru/yt-recap/validation"
	"github.com/sirupsen/logrus"
)

type Server struct {
	recapSvc  recap.Service
	recap     *RecapHandler
	static    fs.FS
	config    *config.Config
	logger    *logrus.Logger
	server    *http.Server
	startTime time.Time
}

type ServerOption func(*Server)

// NewServer creates a new API server with the provided services and options
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		config:    cfg,
		logger:    logrus.StandardLogger(),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.recapSvc != nil {
		validator := validation.NewValidator(validation.DefaultMaxBodyBytes)
		s.recap = NewRecapHandler(s.recapSvc, validator, s.logger)
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// WithServices sets the service behind the completion endpoints
func WithServices(recapSvc recap.Service) ServerOption {
	return func(s *Server) {
		s.recapSvc = recapSvc
	}
}

// WithLogger sets a custom logger for the server
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStatic serves the UI from fsys. fsys must contain index.html at its
// root; other files are served under /static/.
func WithStatic(fsys fs.FS) ServerOption {
	return func(s *Server) {
		s.static = fsys
	}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.WithField("port", s.config.ServerPort).Info("Starting server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if s.recap != nil {
		mux.HandleFunc("POST /api/generate-tweet", s.recap.HandleGenerateTweet)
		mux.HandleFunc("POST /api/generate", s.recap.HandleGenerate)
	}

	mux.HandleFunc("GET /health", s.handleHealth)

	// Only "/" and "/static/" are claimed so that other methods on the API
	// paths still get 405 from the mux.
	if s.static != nil {
		mux.HandleFunc("GET /{$}", s.handleIndex)
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(s.static)))
	}

	return s.middleware(mux)
}

func (s *Server) middleware(handler http.Handler) http.Handler {
	mw := s.config.Middleware

	var rateLimiter middleware.RateLimiter
	if mw.EnableRateLimit && s.config.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(
			s.config.RateLimit.RequestsPerMinute,
			s.config.RateLimit.BurstSize,
		)
	}

	var middlewares []func(http.Handler) http.Handler
	if mw.EnableRecover {
		middlewares = append(middlewares, middleware.Recovery(s.logger))
	}
	if mw.EnableRequestID {
		middlewares = append(middlewares, middleware.RequestID())
	}
	if mw.EnableLogger {
		middlewares = append(middlewares, middleware.Logging(s.logger))
	}
	if mw.EnableCORS {
		middlewares = append(middlewares, middleware.CORS(s.config.CORS))
	}
	middlewares = append(middlewares, middleware.Timeout(s.config.RequestTimeout))
	if rateLimiter != nil {
		middlewares = append(middlewares, rateLimiter.Middleware)
	}
	if mw.EnableSession {
		middlewares = append(middlewares, middleware.Session(s.config.Datastore.Supabase.AuthCookie))
	}

	return middleware.Chain(handler, middlewares...)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, s.static, "index.html")
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.config.Version,
		Uptime:    time.Since(s.startTime).String(),
	}

	if s.config.Debug {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		status.Debug = &models.HealthDebug{
			Goroutines: runtime.NumGoroutine(),
			Allocated:  m.Alloc,
			Total:      m.TotalAlloc,
			System:     m.Sys,
			GCCycles:   m.NumGC,
		}
	}

	respondJSON(w, r, http.StatusOK, status)
}
