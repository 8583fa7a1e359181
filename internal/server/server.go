package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/config"
	apperrors "github.com/tutorlink/tutorlink/internal/errors"
	"github.com/tutorlink/tutorlink/internal/learning"
	"github.com/tutorlink/tutorlink/internal/metrics"
	"github.com/tutorlink/tutorlink/internal/observability"
	"github.com/tutorlink/tutorlink/internal/server/handlers"
	servermw "github.com/tutorlink/tutorlink/internal/server/middleware"
)

// Options wires the server to its dependencies.
type Options struct {
	Config         config.ServerConfig
	Build          handlers.BuildInfo
	Learning       *learning.Service
	Health         *handlers.HealthManager
	MetricsEnabled bool
}

// Server is the HTTP API.
type Server struct {
	router *chi.Mux
	cfg    config.ServerConfig
	health *handlers.HealthManager

	mu        sync.Mutex
	http      *http.Server
	addr      net.Addr
	startedAt time.Time
}

// New builds the router. Nothing listens until Start.
func New(opts Options) *Server {
	if opts.Health == nil {
		opts.Health = handlers.NewHealthManager(opts.Build.Version)
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithEnvelope(w, req, apperrors.New(apperrors.CodeNotFound, "The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithEnvelope(w, req, apperrors.New(apperrors.CodeMethodNotAllowed, "The requested method is not allowed for this resource"))
	})

	s := &Server{router: r, cfg: opts.Config, health: opts.Health}
	s.registerRoutes(opts)
	return s
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.mu.Lock()
	s.http = srv
	s.addr = ln.Addr()
	s.startedAt = time.Now()
	s.mu.Unlock()

	metrics.SetServerStartTime(s.startedAt)
	s.health.MarkStarted()
	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
	}

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, started := s.http, s.startedAt
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Shutting down HTTP server")
	}
	metrics.SetServerUptime(time.Since(started))
	return srv.Shutdown(ctx)
}

// Addr is the bound address once Start is listening, else nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
