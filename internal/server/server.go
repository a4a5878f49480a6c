// Package server provides the HTTP API for transaction submissions and the
// document-rendering function.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/pipeline"
	"github.com/jonathan/transaction-desk/internal/server/middleware"
	"github.com/jonathan/transaction-desk/internal/server/ratelimit"
	"github.com/jonathan/transaction-desk/internal/types"
)

// maxBodyBytes bounds request bodies; records are small JSON documents.
const maxBodyBytes = 1 << 20

// Submitter runs a submission to a terminal state.
type Submitter interface {
	Submit(ctx context.Context, rec types.TransactionRecord, onProgress pipeline.ProgressCallback) (*types.DeliveryAttempt, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	submitter   Submitter
	renderer    pipeline.Generator
	rateLimiter *ratelimit.Limiter
	logger      *zap.Logger
}

// Config holds server configuration. Submitter serves the submission
// endpoints and Renderer the rendering endpoint; either may be nil, but not
// both. Tokens is required with a Renderer.
type Config struct {
	Port      int
	Submitter Submitter
	Renderer  pipeline.Generator
	Tokens    middleware.TokenValidator
	RateLimit *ratelimit.Config
	Logger    *zap.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Submitter == nil && cfg.Renderer == nil {
		return nil, fmt.Errorf("server needs a submitter or a renderer")
	}
	if cfg.Renderer != nil && cfg.Tokens == nil {
		return nil, fmt.Errorf("rendering endpoint requires a token validator")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		submitter:   cfg.Submitter,
		renderer:    cfg.Renderer,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(s.withLogging, ratelimit.Middleware(s.rateLimiter, logger), s.withCORS)
	r.Get("/health", s.handleHealth)

	if s.submitter != nil {
		r.Post("/submissions", s.handleSubmit)
		r.Post("/submissions/stream", s.handleSubmitStream)
	}
	if s.renderer != nil {
		r.With(middleware.AuthMiddleware(cfg.Tokens)).Post("/render", s.handleRender)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // submissions wait on every delivery channel
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Close releases background resources without serving.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging logs each request once it has been served.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
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
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
