package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/admission"
	"github.com/tributary-ai/search-router/internal/execution"
	"github.com/tributary-ai/search-router/internal/providers"
	"github.com/tributary-ai/search-router/internal/routing"
	"github.com/tributary-ai/search-router/internal/types"
)

// Server exposes the search endpoint and the operational surface: provider
// listing, admission usage snapshots, routing metrics, dry-run decisions.
type Server struct {
	hybrid     *routing.HybridRouter
	unified    *routing.UnifiedRouter
	registry   providers.Registry
	controller *admission.Controller
	metrics    *routing.RouterMetrics
	httpServer *http.Server
	logger     *logrus.Logger
	config     *Config
}

// Config holds server configuration
type Config struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// NewServer creates a new server instance
func NewServer(
	hybrid *routing.HybridRouter,
	unified *routing.UnifiedRouter,
	registry providers.Registry,
	controller *admission.Controller,
	metrics *routing.RouterMetrics,
	config *Config,
	logger *logrus.Logger,
) *Server {
	return &Server{
		hybrid:     hybrid,
		unified:    unified,
		registry:   registry,
		controller: controller,
		metrics:    metrics,
		config:     config,
		logger:     logger,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	r := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           ":" + s.config.Port,
		Handler:        r,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	s.logger.WithField("port", s.config.Port).Info("Starting search router server")
	return s.httpServer.ListenAndServe()
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping search router server")
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.contentTypeMiddleware)

	api := r.PathPrefix("/v1").Subrouter()

	// Search surface
	api.HandleFunc("/search", s.handleSearch).Methods("POST")
	api.HandleFunc("/routing/decision", s.handleRoutingDecision).Methods("POST")

	// Operational surface
	api.HandleFunc("/providers", s.handleListProviders).Methods("GET")
	api.HandleFunc("/providers/{name}", s.handleGetProvider).Methods("GET")
	api.HandleFunc("/admission/usage", s.handleAdmissionUsage).Methods("GET")
	api.HandleFunc("/metrics/routing", s.handleRoutingMetrics).Methods("GET")

	r.HandleFunc("/health", s.handleHealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}

// Middleware

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(wrapped, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"user_agent":  r.UserAgent(),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" || r.Method == "PUT" {
			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && contentType != "" {
				s.writeErrorResponse(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handlers

// SearchResult is the full payload of one routing+execution cycle.
type SearchResult struct {
	Decision *routing.RoutingDecision `json:"decision"`
	Outcome  *execution.Outcome       `json:"outcome"`
}

// handleSearch routes and executes a query, returning per-provider results
// alongside the decision that produced them.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	decision, outcome := s.route(r.Context(), query)

	if len(decision.Providers) == 0 {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, "no provider eligible for this query")
		return
	}

	// a fully rate-limited request gets a standard 429 with Retry-After
	if len(outcome.Results) == 0 && len(outcome.Denials) > 0 {
		s.writeRateLimited(w, outcome.Denials)
		return
	}

	s.writeJSON(w, http.StatusOK, SearchResult{Decision: decision, Outcome: outcome})
}

// handleRoutingDecision returns the routing decision without executing
// anything.
func (s *Server) handleRoutingDecision(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	var decision *routing.RoutingDecision
	if query.AdvancedMode {
		decision, _ = s.unified.Decide(r.Context(), query)
	} else {
		decision, _ = s.hybrid.Decide(r.Context(), query)
	}

	s.writeJSON(w, http.StatusOK, decision)
}

// handleListProviders lists all registered providers
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	names := s.registry.Names()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": names,
		"count":     len(names),
	})
}

// handleGetProvider returns one provider's capabilities and breaker state
func (s *Server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	provider, exists := s.registry[name]
	if !exists {
		s.writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("Provider %s not found", name))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":          name,
		"capabilities":  provider.GetCapabilities(),
		"breaker_state": s.controller.Breaker(name).State(),
	})
}

// handleAdmissionUsage returns rate-limit and budget usage per provider
func (s *Server) handleAdmissionUsage(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.Usage())
}

// handleRoutingMetrics returns the routing counters snapshot
func (s *Server) handleRoutingMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// handleHealthCheck reports degraded when any provider's breaker is open
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	breakers := make(map[string]admission.CircuitState, len(s.registry))
	healthy := true
	for _, name := range s.registry.Names() {
		state := s.controller.Breaker(name).State()
		breakers[name] = state
		if state == admission.CircuitOpen {
			healthy = false
		}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	s.writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"breakers":  breakers,
		"timestamp": time.Now().Unix(),
	})
}

// Helper functions

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (*types.SearchQuery, bool) {
	var query types.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return nil, false
	}
	if query.Query == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "query text is required")
		return nil, false
	}
	if query.ID == "" {
		query.ID = uuid.NewString()
	}
	query.Timestamp = time.Now()
	return &query, true
}

func (s *Server) route(ctx context.Context, query *types.SearchQuery) (*routing.RoutingDecision, *execution.Outcome) {
	if query.AdvancedMode {
		return s.unified.Route(ctx, query)
	}
	return s.hybrid.Route(ctx, query)
}

// writeRateLimited emits a 429 with the longest retry-after across denials.
func (s *Server) writeRateLimited(w http.ResponseWriter, denials map[string]*admission.Denial) {
	var retryAfter time.Duration
	for _, denial := range denials {
		if denial.RetryAfter > retryAfter {
			retryAfter = denial.RetryAfter
		}
	}
	if retryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"message": "all selected providers denied admission",
			"type":    "rate_limited",
			"code":    http.StatusTooManyRequests,
		},
		"denials":   denials,
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "api_error",
			"code":    statusCode,
		},
		"timestamp": time.Now().Unix(),
	}

	json.NewEncoder(w).Encode(errorResp)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
