package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	apperrors "github.com/davidleathers/contact-guardian/internal/domain/errors"
)

// Config holds the HTTP server settings
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	Version         string
	Environment     string
	WebSocket       WebSocketConfig
}

// Observer receives request and connection metrics
type Observer interface {
	HTTPObserver
	ConnectionObserver
}

// Dependencies are the services the API exposes
type Dependencies struct {
	Verifier   Verifier
	Analyzer   MessageAnalyzer
	Finder     ServiceFinder
	Store      CorpusStore
	// Signatures is optional; without it signature reloads answer 503
	Signatures SignatureReloader
	Health     *HealthService
	Limiter    Limiter
	Observer   Observer
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
}

// Server is the contact-guardian HTTP API
type Server struct {
	config     Config
	logger     *zap.Logger
	handlers   *Handlers
	health     *HealthService
	hub        *SnapshotHub
	handler    http.Handler
	httpServer *http.Server
}

// NewServer wires the routes and middleware
func NewServer(cfg Config, deps Dependencies) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		return nil, apperrors.NewValidationError("MISSING_DEPENDENCY", "logger cannot be nil")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	base := NewBaseHandler(logger, cfg.Version, cfg.MaxBodyBytes)
	handlers, err := NewHandlers(base, deps.Verifier, deps.Analyzer, deps.Finder, deps.Store)
	if err != nil {
		return nil, err
	}
	handlers.signatures = deps.Signatures

	health := deps.Health
	if health == nil {
		hc := DefaultHealthConfig()
		hc.ServiceVersion = cfg.Version
		hc.Environment = cfg.Environment
		health = NewHealthService(hc)
		health.RegisterChecker(NewCorpusHealthChecker(deps.Store))
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		handlers: handlers,
		health:   health,
		hub:      NewSnapshotHub(deps.Store, deps.Observer, cfg.WebSocket, logger),
	}

	mux := s.routes(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var httpObserver HTTPObserver
	if deps.Observer != nil {
		httpObserver = deps.Observer
	}
	s.handler = chain(mux,
		requestIDMiddleware,
		loggingMiddleware(logger),
		recoveryMiddleware(base),
		tracingMiddleware(otel.Tracer("contact-guardian/http")),
		metricsMiddleware(httpObserver),
		rateLimitMiddleware(deps.Limiter, httpObserver, base, "/health", "/metrics"),
		routeMiddleware,
	)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
	}
	return s, nil
}

func (s *Server) routes(metrics http.Handler) *http.ServeMux {
	h := s.handlers
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health.Handler())
	mux.Handle("GET /metrics", metrics)

	mux.HandleFunc("POST /api/v1/verify", h.Verify)
	mux.HandleFunc("POST /api/v1/messages/analyze", h.AnalyzeMessage)
	mux.HandleFunc("GET /api/v1/services/search", h.SearchServices)
	mux.HandleFunc("POST /api/v1/assistant/context", h.AssistantContext)

	mux.HandleFunc("GET /api/v1/corpus/stats", h.CorpusStats)
	mux.HandleFunc("GET /api/v1/corpus/conflicts", h.CorpusConflicts)
	mux.HandleFunc("POST /api/v1/corpus/reload", h.ReloadCorpus)
	mux.HandleFunc("POST /api/v1/signatures/reload", h.ReloadSignatures)
	mux.HandleFunc("GET /api/v1/contacts", h.SearchContacts)
	mux.HandleFunc("GET /api/v1/contacts/{id}", h.GetContact)

	mux.Handle("GET /api/v1/ws", s.hub)
	return mux
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the snapshot event hub
func (s *Server) Hub() *SnapshotHub {
	return s.hub
}

// Serve accepts connections on l until Shutdown is called
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("starting API server",
		zap.String("address", l.Addr().String()),
		zap.String("environment", s.config.Environment),
		zap.String("version", s.config.Version))

	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Start listens on the configured port and serves until Shutdown
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(l)
}

// Shutdown disconnects websocket clients and drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	s.hub.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", zap.Error(err))
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}
