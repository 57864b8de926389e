package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/snow-ghost/era/core"
	"github.com/snow-ghost/era/optimizer"
	"github.com/snow-ghost/era/pkg/cache"
	"github.com/snow-ghost/era/pkg/limiter"
	"github.com/snow-ghost/era/pkg/observability"
)

// ErrorResponse is the body of every non-2xx JSON reply
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Config holds the HTTP server settings
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server represents the HTTP server
type Server struct {
	config      Config
	router      *http.ServeMux
	state       *optimizer.State
	history     *optimizer.History
	generations *cache.GenerationLog
	protection  *limiter.ProtectionManager
	obs         *observability.Manager
	started     time.Time
}

// Option sets an optional collaborator.
type Option func(*Server)

// WithGenerationLog serves /api/generations from log.
func WithGenerationLog(log *cache.GenerationLog) Option {
	return func(s *Server) { s.generations = log }
}

// WithProtection serves breaker and limiter stats on /api/protection.
func WithProtection(pm *limiter.ProtectionManager) Option {
	return func(s *Server) { s.protection = pm }
}

// NewServer creates a new HTTP server
func NewServer(config Config, state *optimizer.State, history *optimizer.History, obs *observability.Manager, opts ...Option) *Server {
	if obs == nil {
		obs = observability.NewNop()
	}
	s := &Server{
		config:  config,
		router:  http.NewServeMux(),
		state:   state,
		history: history,
		obs:     obs,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes() {
	// Health and metrics
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", s.obs.GetMetrics().Handler())

	s.router.HandleFunc("GET /api/resources", s.handleResources)
	s.router.HandleFunc("GET /api/history", s.handleHistory)
	s.router.HandleFunc("POST /api/load/{level}", s.handleSetLoad)
	s.router.HandleFunc("GET /api/generations", s.handleGenerations)
	s.router.HandleFunc("GET /api/generations/{generation}", s.handleGeneration)
	s.router.HandleFunc("GET /api/protection", s.handleProtection)
}

// Handler returns the routed handler wrapped with request logging
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.router)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.obs.GetLogger().Info("Starting HTTP server", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.obs.LogHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"service":        "era",
		"uptime_seconds": time.Since(s.started).Seconds(),
	})
}

// handleResources returns current usage, active thresholds and load level
func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state.Snapshot())
}

// handleHistory returns the history buffer oldest first
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.history.Points())
}

// handleSetLoad switches the load level
func (s *Server) handleSetLoad(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("level"))
	if err != nil {
		s.writeError(w, "Load level must be 0, 1 or 2", "INVALID_LOAD_LEVEL", http.StatusBadRequest)
		return
	}
	level, err := core.ParseLoadLevel(n)
	if err != nil {
		s.writeError(w, err.Error(), "INVALID_LOAD_LEVEL", http.StatusBadRequest)
		return
	}
	if err := s.state.SetLoadLevel(level); err != nil {
		s.writeError(w, err.Error(), "INVALID_LOAD_LEVEL", http.StatusBadRequest)
		return
	}

	s.obs.GetLogger().Info("Load level changed", "load_level", level.String())
	w.WriteHeader(http.StatusNoContent)
}

// handleGenerations lists recent generations newest first
func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	if s.generations == nil {
		s.writeError(w, "Generation log not available", "GENERATIONS_DISABLED", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, "Invalid limit", "INVALID_LIMIT", http.StatusBadRequest)
			return
		}
		limit = n
	}

	s.writeJSON(w, http.StatusOK, s.generations.Recent(limit))
}

// handleGeneration returns one generation by number
func (s *Server) handleGeneration(w http.ResponseWriter, r *http.Request) {
	if s.generations == nil {
		s.writeError(w, "Generation log not available", "GENERATIONS_DISABLED", http.StatusServiceUnavailable)
		return
	}

	n, err := strconv.Atoi(r.PathValue("generation"))
	if err != nil {
		s.writeError(w, "Invalid generation", "INVALID_GENERATION", http.StatusBadRequest)
		return
	}

	record, ok := s.generations.Get(n)
	if !ok {
		s.writeError(w, "Generation not found", "NOT_FOUND", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// handleProtection handles protection mechanism statistics requests
func (s *Server) handleProtection(w http.ResponseWriter, r *http.Request) {
	if s.protection == nil {
		s.writeError(w, "Protection not configured", "PROTECTION_DISABLED", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, s.protection.GetStats())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.obs.GetLogger().Warn("Failed to encode response", "error", err.Error())
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, message, code string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}
