// Package server provides the HTTP REST API for interview sessions, reports
// and exports.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonathan/interview-coach/internal/account"
	"github.com/jonathan/interview-coach/internal/export"
	"github.com/jonathan/interview-coach/internal/history"
	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/report"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
)

// Config holds server configuration
type Config struct {
	Port      int
	RateLimit *ratelimit.Config
}

// Services are the operations the API exposes. Downloads is nil when exports
// are published to object storage.
type Services struct {
	Accounts   *account.Service
	History    *history.Service
	Interviews *interview.Service
	Reports    *report.Pipeline
	Exports    *export.Service
	Downloads  *export.LocalPublisher
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	svc         Services
	log         logging.Logger
	rateLimiter *ratelimit.Limiter
}

// New creates a new server instance
func New(cfg Config, svc Services, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	rl := cfg.RateLimit
	if rl == nil {
		rl = ratelimit.LoadConfig()
	}

	s := &Server{
		svc:         svc,
		log:         log.With("component", "http"),
		rateLimiter: ratelimit.NewLimiter(rl),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for report generation and export
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Users
	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("GET /users/{id}", s.handleGetProfile)
	mux.HandleFunc("PUT /users/{id}", s.handleUpdateProfile)
	mux.HandleFunc("DELETE /users/{id}", s.handleDeleteUser)
	mux.HandleFunc("GET /users/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /users/{id}/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /users/{id}/performance", s.handlePerformance)
	mux.HandleFunc("GET /users/{id}/scores", s.handleScores)

	// Interview sessions
	mux.HandleFunc("POST /interviews", s.handleCreateInterview)
	mux.HandleFunc("GET /interviews/{id}", s.handleGetInterview)
	mux.HandleFunc("DELETE /interviews/{id}", s.handleDeleteInterview)
	mux.HandleFunc("GET /interviews/{id}/mode", s.handleMode)
	mux.HandleFunc("POST /interviews/{id}/greeting", s.handleGreeting)
	mux.HandleFunc("GET /interviews/{id}/turns", s.handleConversation)
	mux.HandleFunc("POST /interviews/{id}/turns", s.handleRecordTurn)
	mux.HandleFunc("POST /interviews/{id}/turns/voice", s.handleRecordVoiceTurn)
	mux.HandleFunc("POST /interviews/{id}/exchange", s.handleExchange)
	mux.HandleFunc("POST /interviews/{id}/timer", s.handleTimer)

	// Reports and exports
	mux.HandleFunc("GET /interviews/{id}/transcript", s.handleTranscript)
	mux.HandleFunc("POST /interviews/{id}/report", s.handleReport)
	mux.HandleFunc("GET /interviews/{id}/report", s.handleLatestReport)
	mux.HandleFunc("POST /interviews/{id}/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /interviews/{id}/breakdown", s.handleLatestBreakdown)
	mux.HandleFunc("POST /interviews/{id}/export", s.handleExport)
	mux.HandleFunc("GET /downloads/{token}", s.handleDownload)

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start listens until ctx is cancelled or SIGINT/SIGTERM arrives, then drains
// in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info(context.Background(), "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info(shutdownCtx, "server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging logs one line per request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error(r.Context(), "failed to encode response", "error", err)
	}
}

// clientID extracts the client identifier (IP address) from RemoteAddr.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
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
		secs := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.log.Warn(r.Context(), "rate limit exceeded",
		"client", clientID(r), "path", r.URL.Path, "limit", info.Limit)

	s.jsonResponse(w, r, http.StatusTooManyRequests, response)
}
