// Package api provides the REST API for incident records, aggregates and
// human evaluation.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"aviation_incidents/internal/evaluation"
	"aviation_incidents/internal/incident"
	"aviation_incidents/internal/metrics"
	"aviation_incidents/internal/query"
	"aviation_incidents/internal/storage"
)

// Store is the read surface the handlers need from the primary store.
type Store interface {
	storage.AggregateReader

	GetRecord(ctx context.Context, uid string) (*incident.Incident, error)
	ListIncidents(ctx context.Context, f query.Filter, page *query.Page) ([]incident.Incident, error)
	ListClassificationResults(ctx context.Context, evaluatorID string, page query.Page) ([]incident.ClassificationResult, error)
	ClassificationsBySourceUID(ctx context.Context, uids []string) (map[string]incident.ClassificationResult, error)
	ListClassifiedIncidents(ctx context.Context, page query.Page) ([]storage.ClassifiedIncident, error)
}

// AirportResolver maps airport codes to airports.
type AirportResolver interface {
	Resolve(ctx context.Context, codes []string) (map[string]incident.Airport, error)
	Lookup(ctx context.Context, code string) (*incident.Airport, error)
}

// Backends are the services the handlers delegate to.
type Backends struct {
	Store Store

	// Aggregates serves grouped counts. Nil means Store.
	Aggregates storage.AggregateReader

	Airports    AirportResolver
	Evaluations *evaluation.Service
}

// Config holds configuration for the API server.
type Config struct {
	Port            int
	AuthEnabled     bool
	APIKeys         []string // List of valid API keys.
	GracefulTimeout time.Duration
}

// Server provides REST API access to the incident data.
type Server struct {
	store       Store
	aggregates  storage.AggregateReader
	airports    AirportResolver
	evaluations *evaluation.Service
	logger      *slog.Logger

	port            int
	authEnabled     bool
	apiKeys         map[string]bool // Simple API key auth (when enabled).
	gracefulTimeout time.Duration
}

// NewServer creates a new API server.
func NewServer(b Backends, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}
	aggregates := b.Aggregates
	if aggregates == nil {
		aggregates = b.Store
	}
	graceful := cfg.GracefulTimeout
	if graceful <= 0 {
		graceful = 10 * time.Second
	}

	return &Server{
		store:           b.Store,
		aggregates:      aggregates,
		airports:        b.Airports,
		evaluations:     b.Evaluations,
		logger:          logger,
		port:            cfg.Port,
		authEnabled:     cfg.AuthEnabled,
		apiKeys:         keys,
		gracefulTimeout: graceful,
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Mount("/", s.Router())

	addr := ":" + strconv.Itoa(s.port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("incident API starting", slog.String("url", "http://localhost"+addr))
	if s.authEnabled {
		s.logger.Info("authentication enabled (API key required)")
	} else {
		s.logger.Info("authentication disabled (open access)")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.gracefulTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Router returns the configured chi router without access logging.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metricsMiddleware)

	// CORS for browser access.
	r.Use(corsMiddleware)

	// Optional authentication.
	if s.authEnabled {
		r.Use(s.authMiddleware)
	}

	r.Get("/health", s.handleHealth)

	r.Get("/record/{uid}", s.handleGetRecord)
	r.Get("/classification-results", s.handleClassificationResults)
	r.Post("/full_classification_results_bulk", s.handleBulk)
	r.Get("/full_classification_results/{uid}", s.handleFullClassification)

	r.Route("/human_evaluation", func(r chi.Router) {
		r.Post("/submit", s.handleSubmit)
		r.Post("/login", s.handleLogin)
		r.Get("/categories", s.handleCategories)
	})
	r.Get("/api/task/next/{evaluator_id}", s.handleNextTask)

	r.Get("/airports", s.handleAirports)
	r.Get("/airport/{code}", s.handleAirport)

	r.Route("/aggregates", func(r chi.Router) {
		r.Get("/seasonal-distribution", s.handleSeasonal)
		r.Get("/risk-heatmap", s.handleRiskHeatmap)
		r.Get("/over-time", s.handleOverTime)
		r.Get("/top-n", s.handleTopN)
		r.Get("/heatmap", s.handleHeatmap)
		r.Get("/hierarchy", s.handleHierarchy)
		r.Get("/by-location", s.handleByLocation)
		r.Get("/locations-over-time", s.handleLocationsOverTime)
		r.Get("/statistics", s.handleStatistics)
	})

	r.Get("/incidents/locations", s.handleIncidentLocations)
	r.Get("/incidents/classified-detailed", s.handleClassifiedDetailed)
	r.Get("/reports/uids_by_filter", s.handleUIDsByFilter)

	return r
}

// metricsMiddleware records request counts and latency by route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveRequest(route, status, time.Since(start))
	})
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")

		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Query parameter, for simple testing.
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, errInvalidParam),
		errors.Is(err, incident.ErrInvalidUID),
		errors.Is(err, query.ErrInvalidPeriod),
		errors.Is(err, query.ErrInvalidDimension),
		errors.Is(err, query.ErrInvalidPage),
		errors.Is(err, evaluation.ErrInvalidSubmission):
		return http.StatusBadRequest
	case errors.Is(err, evaluation.ErrUnknownEvaluator):
		return http.StatusForbidden
	case errors.Is(err, evaluation.ErrAssignmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrReadOnly):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. Server errors are logged and
// their detail withheld from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
