package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	sourceService    driving.SourceService
	syncService      driving.SyncService
	changeLogService driving.ChangeLogService

	// Infrastructure
	taskQueue   driven.TaskQueue
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	sourceService driving.SourceService,
	syncService driving.SyncService,
	changeLogService driving.ChangeLogService,
	taskQueue driven.TaskQueue,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		sourceService:    sourceService,
		syncService:      syncService,
		changeLogService: changeLogService,
		taskQueue:        taskQueue,
		db:               db,
		redisClient:      redisClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Source endpoints
	s.router.HandleFunc("GET /api/v1/sources", s.handleListSources)
	s.router.HandleFunc("POST /api/v1/sources", s.handleCreateSource)
	s.router.HandleFunc("GET /api/v1/sources/{id}", s.handleGetSource)
	s.router.HandleFunc("PUT /api/v1/sources/{id}", s.handleUpdateSource)
	s.router.HandleFunc("DELETE /api/v1/sources/{id}", s.handleDeleteSource)

	// Sync endpoints - all under /sources for consistency
	s.router.HandleFunc("POST /api/v1/sources/{id}/sync", s.handleTriggerSync)
	s.router.HandleFunc("GET /api/v1/sources/{id}/sync", s.handleGetSyncState)
	s.router.HandleFunc("GET /api/v1/sources/sync-states", s.handleListSyncStates)

	// Change log endpoints
	s.router.HandleFunc("GET /api/v1/changelog", s.handleListChangeLog)
	s.router.HandleFunc("DELETE /api/v1/changelog", s.handleClearChangeLog)

	// Catalog statistics
	s.router.HandleFunc("GET /api/v1/stats", s.handleGetStats)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
