package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/postcraft/internal/business"
	"github.com/jonathan/postcraft/internal/db"
	"github.com/jonathan/postcraft/internal/logging"
	"github.com/jonathan/postcraft/internal/pipeline"
	"github.com/jonathan/postcraft/internal/server/middleware"
	"github.com/jonathan/postcraft/internal/server/ratelimit"
	"github.com/jonathan/postcraft/internal/types"
)

// Pipeline runs generation actions and reports the status of recent runs.
type Pipeline interface {
	Run(ctx context.Context, req pipeline.Request) (*types.PipelineResult, error)
	Status(runID string) (pipeline.Snapshot, bool)
}

// ContextBuilder builds a business context on its own.
type ContextBuilder interface {
	Build(ctx context.Context, in business.Inputs) (*types.BusinessContext, error)
}

// ResultStore looks up and manages persisted runs.
type ResultStore interface {
	GetResult(ctx context.Context, runID uuid.UUID) (*types.PipelineResult, error)
	ListRuns(ctx context.Context, filters db.RunFilters) ([]db.Run, error)
	DeleteRun(ctx context.Context, runID uuid.UUID) error
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	pipeline    Pipeline
	contexts    ContextBuilder
	results     ResultStore
	rateLimiter *ratelimit.Limiter
	logger      *logrus.Logger
	gatherer    prometheus.Gatherer
}

// Config holds server configuration
type Config struct {
	Addr string
	// ClientRPS bounds how often one client may start a generation or analysis.
	ClientRPS float64
	// Getenv reads RATE_LIMIT_* overrides; nil disables them.
	Getenv func(string) string
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Pipeline Pipeline
	Contexts ContextBuilder
	Results  ResultStore // optional
	Logger   *logrus.Logger
	Gatherer prometheus.Gatherer // defaults to prometheus.DefaultGatherer
}

// New creates a new server instance
func New(cfg Config, deps Deps) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	getenv := cfg.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		pipeline:    deps.Pipeline,
		contexts:    deps.Contexts,
		results:     deps.Results,
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig(cfg.ClientRPS, getenv)),
		logger:      deps.Logger,
		gatherer:    deps.Gatherer,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // Video generation can take minutes
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/generate", s.handleGenerate)
	mux.HandleFunc("POST /v1/generate/stream", s.handleGenerateStream)
	mux.HandleFunc("POST /v1/context", s.handleContext)
	mux.HandleFunc("GET /v1/runs/{id}", s.handleRunStatus)
	if s.results != nil {
		mux.HandleFunc("GET /v1/runs", s.handleListRuns)
		mux.HandleFunc("DELETE /v1/runs/{id}", s.handleDeleteRun)
	}
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return middleware.Chain(mux,
		middleware.Recover(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
		middleware.CORS,
		s.withRateLimit,
	)
}

// Start begins listening for requests and blocks until ctx is done or the process
// receives SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.rateLimiter.Stop()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop rate limiter cleanup goroutine
	defer s.rateLimiter.Stop()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Warn("failed to encode JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier (IP address) from the request.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		retry := max(1, int(info.RetryAfter.Seconds()))
		response["retry_after"] = retry
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
	}

	s.logger.WithFields(logging.Fields{
		"path":   r.URL.Path,
		"client": extractClientID(r),
		"limit":  info.Limit,
	}).Warn("rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
