package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dexops/internal/dex"
	"dexops/internal/storage"
)

// Server represents the HTTP API server
// Provides endpoints for Prometheus metrics, health checks, and pair queries
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	dex        *dex.Service
	repository storage.Repository
	addr       string
}

// NewServer creates a new API server instance. The dex service answers live
// pair queries; the repository (nil allowed) answers deployment history.
func NewServer(addr string, dexService *dex.Service, repository storage.Repository) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:        mux,
		dex:        dexService,
		repository: repository,
		addr:       addr,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())

	// Pair endpoints
	s.mux.HandleFunc("/pairs", s.handlePairs)
	s.mux.HandleFunc("/pairs/", s.handlePairRoutes)
	s.mux.HandleFunc("/quote", s.handleQuote)

	// Deployment history endpoints
	s.mux.HandleFunc("/deployments", s.handleDeployments)
	s.mux.HandleFunc("/deployments/", s.handleDeploymentRoutes)
}

// handlePairs routes the pair lookup (without trailing slash)
func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.handleGetPair(w, r)
}

// handlePairRoutes routes pair sub-endpoints (with trailing slash)
func (s *Server) handlePairRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/pairs/")
	parts := strings.Split(path, "/")

	// GET /pairs/{id}
	if len(parts) == 1 {
		s.handleGetPairByID(w, r)
		return
	}

	// GET /pairs/{id}/events
	if len(parts) == 2 && parts[1] == "events" {
		s.handleGetPairEvents(w, r)
		return
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// handleDeployments routes the deployment list (without trailing slash)
func (s *Server) handleDeployments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.handleListDeployments(w, r)
}

// handleDeploymentRoutes routes deployment sub-endpoints (with trailing slash)
func (s *Server) handleDeploymentRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/deployments/")
	parts := strings.Split(path, "/")

	// GET /deployments/{run_id}/steps
	if len(parts) == 2 && parts[1] == "steps" {
		s.handleGetRunSteps(w, r)
		return
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"addr", s.addr,
			"endpoints", []string{"/", "/health", "/metrics", "/pairs", "/quote", "/deployments"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
