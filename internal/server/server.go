// Package server is the HTTP and WebSocket API over the ledger: entries,
// positions, the watchlist, manual sync triggers and exports.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/server/handler"
	"github.com/JayIsLate/tradejournal-sub000/internal/server/middleware"
	"github.com/JayIsLate/tradejournal-sub000/internal/server/ws"
)

// Config holds the HTTP server settings.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication

	// RateLimit caps requests per client IP per RateWindow when a limiter
	// is supplied. Zero disables API rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the route handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Entries   *handler.EntryHandler
	Positions *handler.PositionHandler
	Addresses *handler.AddressHandler
	Sync      *handler.SyncHandler
	Export    *handler.ExportHandler
}

// Server is the API server for the ledger.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered. wsHub and limiter may
// be nil.
func New(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check, outside auth.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/entries", handlers.Entries.ListEntries)
	mux.HandleFunc("GET /api/entries/origin/{id}", handlers.Entries.GetByOrigin)
	mux.HandleFunc("PATCH /api/entries/{id}", handlers.Entries.PatchEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", handlers.Entries.DeleteEntry)
	mux.HandleFunc("GET /api/audit", handlers.Entries.AuditTrail)

	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("GET /api/positions/{key}", handlers.Positions.GetPosition)

	mux.HandleFunc("GET /api/addresses", handlers.Addresses.ListAddresses)
	mux.HandleFunc("POST /api/addresses", handlers.Addresses.AddAddress)
	mux.HandleFunc("DELETE /api/addresses/{address}", handlers.Addresses.RemoveAddress)

	mux.HandleFunc("POST /api/sync/trigger", handlers.Sync.TriggerSync)

	mux.HandleFunc("POST /api/export/snapshot", handlers.Export.Snapshot)
	mux.HandleFunc("POST /api/export/archive", handlers.Export.Archive)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start listens for requests. It blocks until the server errors or is shut
// down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
