package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"dexops/internal/dex"
	"dexops/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleIndex returns basic service information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":     "dexops",
		"version":     "1.0.0",
		"description": "Casper DEX contract state resolver and deployment orchestrator",
		"endpoints": map[string]string{
			"GET /":                           "This page - Service information",
			"GET /health":                     "Health check endpoint",
			"GET /metrics":                    "Prometheus metrics for monitoring",
			"GET /pairs":                      "Look up a pair (?token_a=, ?token_b=)",
			"GET /pairs/{id}":                 "Current state of a pair contract",
			"GET /pairs/{id}/events":          "Decoded event log of a pair contract",
			"GET /quote":                      "Swap quote (?token_in=, ?token_out=, ?amount_in=)",
			"GET /deployments":                "Recorded contract deployments (?limit=, ?offset=)",
			"GET /deployments/{run_id}/steps": "Step log of one deployment run",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   "dexops",
	}

	if s.repository != nil {
		if err := s.repository.Ping(r.Context()); err != nil {
			health.Status = "degraded"
			health.Database = "unreachable"
		} else {
			health.Database = "connected"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// =============================================================================
// PAIR ENDPOINTS
// =============================================================================

// handleGetPair resolves a pair from its two tokens and returns its state
// GET /pairs?token_a=hash-...&token_b=hash-...
func (s *Server) handleGetPair(w http.ResponseWriter, r *http.Request) {
	if s.dex == nil {
		s.sendError(w, "Pair queries disabled: no factory configured", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	tokenA, err := parseIdentifierParam(query.Get("token_a"))
	if err != nil {
		s.sendError(w, "Invalid token_a: "+err.Error(), http.StatusBadRequest)
		return
	}
	tokenB, err := parseIdentifierParam(query.Get("token_b"))
	if err != nil {
		s.sendError(w, "Invalid token_b: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	pair, found, err := s.dex.FindPair(ctx, tokenA, tokenB)
	if err != nil {
		if errors.Is(err, dex.ErrIdenticalTokens) {
			s.sendError(w, "token_a and token_b are identical", http.StatusBadRequest)
			return
		}
		slog.Error("Failed to find pair", "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !found {
		s.sendError(w, "Pair not found", http.StatusNotFound)
		return
	}

	state, err := s.dex.State(ctx, pair)
	if err != nil {
		slog.Error("Failed to read pair state", "pair", pair.String(), "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(buildPairResponse(state))
}

// handleGetPairByID returns the state of one pair contract
// GET /pairs/{id}
func (s *Server) handleGetPairByID(w http.ResponseWriter, r *http.Request) {
	if s.dex == nil {
		s.sendError(w, "Pair queries disabled: no factory configured", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/pairs/")
	pair, err := parseIdentifierParam(strings.Split(path, "/")[0])
	if err != nil {
		s.sendError(w, "Invalid pair id: "+err.Error(), http.StatusBadRequest)
		return
	}

	state, err := s.dex.State(r.Context(), pair)
	if err != nil {
		slog.Error("Failed to read pair state", "pair", pair.String(), "error", err)
		s.sendError(w, "Pair not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(buildPairResponse(state))
}

// handleGetPairEvents returns the decoded event log of a pair
// GET /pairs/{id}/events
func (s *Server) handleGetPairEvents(w http.ResponseWriter, r *http.Request) {
	if s.dex == nil {
		s.sendError(w, "Pair queries disabled: no factory configured", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/pairs/")
	pair, err := parseIdentifierParam(strings.Split(path, "/")[0])
	if err != nil {
		s.sendError(w, "Invalid pair id: "+err.Error(), http.StatusBadRequest)
		return
	}

	records, gaps, err := s.dex.Events(r.Context(), pair)
	if err != nil {
		slog.Error("Failed to read pair events", "pair", pair.String(), "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	eventResponses := make([]models.EventResponse, len(records))
	for i, rec := range records {
		eventResponses[i] = models.EventResponse{
			Name:     rec.Name,
			Fields:   renderEventFields(rec),
			Sequence: rec.Sequence,
		}
	}

	gapIndices := make([]uint32, len(gaps))
	for i, g := range gaps {
		gapIndices[i] = g.Index
	}

	response := models.EventsResponse{
		Pair:   pair.String(),
		Events: eventResponses,
		Gaps:   gapIndices,
		Total:  len(eventResponses),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleQuote computes the output amount of a hypothetical swap
// GET /quote?token_in=hash-...&token_out=hash-...&amount_in=1000
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.dex == nil {
		s.sendError(w, "Pair queries disabled: no factory configured", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	tokenIn, err := parseIdentifierParam(query.Get("token_in"))
	if err != nil {
		s.sendError(w, "Invalid token_in: "+err.Error(), http.StatusBadRequest)
		return
	}
	tokenOut, err := parseIdentifierParam(query.Get("token_out"))
	if err != nil {
		s.sendError(w, "Invalid token_out: "+err.Error(), http.StatusBadRequest)
		return
	}

	amountIn, ok := new(big.Int).SetString(query.Get("amount_in"), 10)
	if !ok || amountIn.Sign() <= 0 {
		s.sendError(w, "Invalid amount_in: positive decimal integer required", http.StatusBadRequest)
		return
	}

	reserveIn, reserveOut, err := s.dex.ReservesFor(r.Context(), tokenIn, tokenOut)
	if err != nil {
		slog.Error("Failed to read reserves", "error", err)
		s.sendError(w, "Pair not found", http.StatusNotFound)
		return
	}

	amountOut, err := dex.GetAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		s.sendError(w, "Quote failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	response := models.QuoteResponse{
		TokenIn:    tokenIn.String(),
		TokenOut:   tokenOut.String(),
		AmountIn:   amountIn.String(),
		AmountOut:  amountOut.String(),
		ReserveIn:  reserveIn.String(),
		ReserveOut: reserveOut.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// =============================================================================
// DEPLOYMENT HISTORY ENDPOINTS
// =============================================================================

// handleListDeployments lists recorded contract deployments
// GET /deployments?limit=50&offset=0
func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	if s.repository == nil {
		s.sendError(w, "Deployment history disabled: no database configured", http.StatusServiceUnavailable)
		return
	}

	limit, offset := parsePagination(r)

	contracts, err := s.repository.ListDeployedContracts(r.Context(), limit, offset)
	if err != nil {
		slog.Error("Failed to list deployments", "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	page := (offset / limit) + 1

	response := models.DeploymentListResponse{
		Contracts: contracts,
		Total:     len(contracts),
		Page:      page,
		PageSize:  limit,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleGetRunSteps returns the step log of one deployment run
// GET /deployments/{run_id}/steps
func (s *Server) handleGetRunSteps(w http.ResponseWriter, r *http.Request) {
	if s.repository == nil {
		s.sendError(w, "Deployment history disabled: no database configured", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/deployments/")
	runID := strings.Split(path, "/")[0]
	if runID == "" {
		s.sendError(w, "Run ID required", http.StatusBadRequest)
		return
	}

	limit, offset := parsePagination(r)

	steps, err := s.repository.ListDeploymentSteps(r.Context(), runID, limit, offset)
	if err != nil {
		slog.Error("Failed to list steps", "run_id", runID, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := models.StepsResponse{
		RunID: runID,
		Steps: steps,
		Total: len(steps),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
