// Package server exposes the bridge over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/server/handler"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/server/middleware"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/server/ws"
)

// convertRateLimit bounds conversion submissions per client IP.
const (
	convertRateLimit  = 10
	convertRateWindow = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Bridge      *handler.BridgeHandler
	Conversions *handler.ConversionsHandler
}

// Server is the headless HTTP + WebSocket API server for the bridge.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (logging, CORS, auth, rate limiting) wired. A nil
// limiter disables rate limiting on the convert endpoint.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Liveness (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Bridge read endpoints.
	mux.HandleFunc("GET /api/bridge/config", handlers.Bridge.GetConfig)
	mux.HandleFunc("GET /api/bridge/status", handlers.Bridge.GetStatus)
	mux.HandleFunc("GET /api/bridge/estimate", handlers.Bridge.GetEstimate)
	mux.HandleFunc("GET /api/bridge/pools", handlers.Bridge.GetPools)
	mux.HandleFunc("GET /api/bridge/cache", handlers.Bridge.GetCache)

	// Conversion execution, rate limited per client.
	var convert http.Handler = http.HandlerFunc(handlers.Bridge.Convert)
	if limiter != nil {
		convert = middleware.RateLimit(limiter, convertRateLimit, convertRateWindow)(convert)
	}
	mux.Handle("POST /api/bridge/convert", convert)

	// Recorded conversions.
	mux.HandleFunc("GET /api/conversions", handlers.Conversions.ListConversions)
	mux.HandleFunc("GET /api/conversions/{id}", handlers.Conversions.GetConversion)

	// WebSocket event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, all origins are allowed.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
