// Package api exposes tempo over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/felixgeelhaar/tempo/internal/identity/application/auth"
	"github.com/felixgeelhaar/tempo/internal/identity/application/oauth"
	"github.com/felixgeelhaar/tempo/internal/productivity/application/commands"
	"github.com/felixgeelhaar/tempo/internal/productivity/application/queries"
	schedulingApp "github.com/felixgeelhaar/tempo/internal/scheduling/application"
	"github.com/felixgeelhaar/tempo/pkg/observability"
)

const maxBodyBytes = 1 << 20

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// DefaultServerConfig returns the default server configuration. The write
// timeout leaves room for an upstream call plus a token refresh and retry.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           "0.0.0.0:8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// Deps are the application services behind the routes.
type Deps struct {
	Auth         *auth.Service
	OAuth        *oauth.Manager
	CreateTask   *commands.CreateTaskHandler
	UpdateTask   *commands.UpdateTaskHandler
	DeleteTask   *commands.DeleteTaskHandler
	ListTasks    *queries.ListTasksHandler
	GetTask      *queries.GetTaskHandler
	Orchestrator *schedulingApp.Orchestrator
	Health       *observability.HealthRegistry
	Metrics      observability.Metrics
	// MetricsHandler serves GET /metrics; omitted when nil.
	MetricsHandler http.Handler
}

// Server is the HTTP API server.
type Server struct {
	mux     *http.ServeMux
	server  *http.Server
	logger  *slog.Logger
	metrics observability.Metrics
	deps    Deps
}

// NewServer creates the API server and registers every route.
func NewServer(cfg ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NoopMetrics{}
	}
	if deps.Health == nil {
		deps.Health = observability.NewHealthRegistry()
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		metrics: deps.Metrics,
		deps:    deps,
	}
	s.registerRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.requestID(s.recoverer(s.observe(c.Handler(s.mux)))),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.deps.MetricsHandler != nil {
		s.mux.Handle("GET /metrics", s.deps.MetricsHandler)
	}

	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	s.mux.HandleFunc("GET /api/auth/me", s.authenticated(s.handleMe))

	s.mux.HandleFunc("GET /api/tasks", s.authenticated(s.handleListTasks))
	s.mux.HandleFunc("POST /api/tasks", s.authenticated(s.handleCreateTask))
	s.mux.HandleFunc("GET /api/tasks/{id}", s.authenticated(s.handleGetTask))
	s.mux.HandleFunc("PUT /api/tasks/{id}", s.authenticated(s.handleUpdateTask))
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.authenticated(s.handleDeleteTask))

	s.mux.HandleFunc("POST /api/ai/suggest", s.authenticated(s.handleSuggest))

	s.mux.HandleFunc("GET /api/calendar/status", s.authenticated(s.handleCalendarStatus))
	s.mux.HandleFunc("GET /api/calendar/auth/url", s.authenticated(s.handleAuthURL))
	s.mux.HandleFunc("POST /api/calendar/auth/exchange", s.authenticated(s.handleExchange))
	s.mux.HandleFunc("DELETE /api/calendar/connection", s.authenticated(s.handleDisconnect))
	s.mux.HandleFunc("GET /api/calendar/availability", s.authenticated(s.handleAvailability))
	s.mux.HandleFunc("POST /api/calendar/schedule", s.authenticated(s.handleSchedule))
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Health.Check(r.Context())
	status := http.StatusOK
	if report.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return badRequest("request body must be valid JSON")
}
