package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"mercator-hq/auditor/pkg/audit"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/policy/manager"
	"mercator-hq/auditor/pkg/server/middleware"
	"mercator-hq/auditor/pkg/telemetry/health"
	"mercator-hq/auditor/pkg/telemetry/metrics"
	"mercator-hq/auditor/pkg/verdicts"
)

// Auditor runs audits; *audit.Service implements it.
type Auditor interface {
	AuditTicket(ctx context.Context, ticketID string) (*audit.Result, error)
	AuditInput(ctx context.Context, req audit.Request) (*audit.Result, error)
}

// PolicyController exposes the decision grid lifecycle; *manager.Manager
// implements it.
type PolicyController interface {
	Status() manager.Status
	Load(ctx context.Context) error
}

// Deps are the components the API serves. Verdicts and Health may be nil;
// their routes then answer 503 and the probes are not mounted.
type Deps struct {
	Auditor  Auditor
	Policy   PolicyController
	Verdicts verdicts.Storage
	Health   *health.Checker
	Metrics  *metrics.Collector
	Logger   *slog.Logger
	Version  health.VersionInfo
}

// Server is the audit API server.
type Server struct {
	config    config.ServerConfig
	telemetry config.TelemetryConfig
	query     config.QueryConfig
	deps      Deps
	logger    *slog.Logger

	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server. cfg is read once; later changes to it have no
// effect.
func NewServer(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:       cfg.Server,
		telemetry:    cfg.Telemetry,
		query:        cfg.Verdicts.Query,
		deps:         deps,
		logger:       logger.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}
}

// Start listens on the configured address and serves until ctx is
// cancelled, Stop is called or the listener fails. It then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting audit API server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown stops accepting connections and waits up to ShutdownTimeout for
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("audit API server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound address while running, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.routes()

	handler = middleware.TimeoutMiddleware(s.config.RequestTimeout)(handler)
	handler = middleware.BodyLimitMiddleware(s.config.MaxBodyBytes)(handler)
	handler = middleware.CORSMiddleware(s.config.CORS)(handler)
	handler = middleware.LoggingMiddleware(s.logger)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(s.logger)(handler)
	return handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	s.handle(mux, "POST /v1/audits", s.handleCreateAudit)
	s.handle(mux, "GET /v1/audits", s.handleListAudits)
	s.handle(mux, "GET /v1/audits/{id}", s.handleGetAudit)
	s.handle(mux, "GET /v1/policy", s.handlePolicyStatus)
	s.handle(mux, "POST /v1/policy/reload", s.handlePolicyReload)

	if s.deps.Health != nil {
		health.Mount(mux, s.deps.Health, s.telemetry.Health, s.deps.Version)
	}
	if s.telemetry.Metrics.Enabled && s.telemetry.Metrics.Path != "" {
		mux.Handle("GET "+s.telemetry.Metrics.Path, s.deps.Metrics.Handler())
	}
	return mux
}

// handle registers h and records per-route request metrics.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	_, route, _ := strings.Cut(pattern, " ")
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw, status := middleware.StatusRecorder(w)
		h(rw, r)
		s.deps.Metrics.RecordHTTPRequest(route, r.Method, status(), time.Since(start))
	})
}
