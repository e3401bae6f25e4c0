// Package api provides the HTTP server for the request log service.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apispec "github.com/narvanalabs/request-logs/api"
	apierrors "github.com/narvanalabs/request-logs/internal/api/errors"
	"github.com/narvanalabs/request-logs/internal/api/handlers"
	"github.com/narvanalabs/request-logs/internal/api/health"
	"github.com/narvanalabs/request-logs/internal/api/middleware"
	"github.com/narvanalabs/request-logs/internal/logs"
	"github.com/narvanalabs/request-logs/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	config        *config.Config
	logger        *slog.Logger
	files         *logs.FileStore
	remote        *logs.RemoteSource
	aggregator    *logs.Aggregator
	clearer       *logs.ClearCoordinator
	healthChecker *health.Checker

	idGen        middleware.IDGenerator
	instanceID   string
	remoteClient *http.Client
}

// Option configures a Server.
type Option func(*Server)

// WithIDGenerator sets the trace id generator.
func WithIDGenerator(gen middleware.IDGenerator) Option {
	return func(s *Server) {
		s.idGen = gen
	}
}

// WithInstanceID sets the id this server announces to, and recognizes from, companions.
func WithInstanceID(id string) Option {
	return func(s *Server) {
		s.instanceID = id
	}
}

// WithRemoteHTTPClient sets the HTTP client used to reach the remote companion.
func WithRemoteHTTPClient(client *http.Client) Option {
	return func(s *Server) {
		s.remoteClient = client
	}
}

// NewServer creates a new API server wired to the local log file and the remote companion.
func NewServer(cfg *config.Config, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		logger: logger,
		idGen:  middleware.UUIDGenerator,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.instanceID == "" {
		s.instanceID = middleware.UUIDGenerator()
	}

	remoteOpts := []logs.RemoteOption{logs.WithInstanceID(s.instanceID)}
	if s.remoteClient != nil {
		remoteOpts = append(remoteOpts, logs.WithHTTPClient(s.remoteClient))
	}

	s.files = logs.NewFileStore(cfg.LogDir, cfg.LogFile, logger)
	s.remote = logs.NewRemoteSource(cfg.Remote, logger, remoteOpts...)
	s.aggregator = logs.NewAggregator(s.files, s.remote, cfg.PaginationMode, logger)
	s.clearer = logs.NewClearCoordinator(s.files, s.remote, logger)

	s.healthChecker = health.NewChecker(Version).
		AddCritical("log_file", s.files).
		AddOptional("remote", s.remote)

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Trace(s.idGen))
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, apierrors.NewNotFoundError("Not Found").
			WithRequestID(chimiddleware.GetReqID(r.Context())))
	})
	r.MethodNotAllowed(apierrors.WriteMethodNotAllowed)

	healthHandler := s.healthChecker.Handler()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		healthHandler(w, r.WithContext(logs.ContextWithRequestHost(r.Context(), r.Host)))
	})

	docsHandler := handlers.NewDocsHandler(apispec.OpenAPISpec, s.logger)
	r.Get("/api/docs/openapi.yaml", docsHandler.ServeOpenAPISpec)

	logHandler := handlers.NewLogHandler(s.aggregator, s.clearer, s.logger)
	r.Get("/logs", logHandler.List)
	r.Delete("/logs", logHandler.Clear)

	viewerHandler := handlers.NewViewerHandler(s.config.ViewerPath, s.logger)
	r.Get("/logs.html", viewerHandler.Serve)

	internalHandler := handlers.NewInternalLogHandler(s.files, s.logger)
	r.Route(logs.InternalLogsPath, func(r chi.Router) {
		r.Use(middleware.LoopGuard(s.instanceID, s.logger))
		r.Use(middleware.InternalKey(s.config.Remote.APIKeyHeader, s.config.Remote.InternalAPIKey, s.logger))
		r.Get("/", internalHandler.List)
		r.Delete("/", internalHandler.Clear)
		r.Post("/", internalHandler.Append)
	})

	s.router = r
}

// ListenAndServe serves until the server is shut down. A graceful shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// HTTPServer returns the underlying http.Server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
