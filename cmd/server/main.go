/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the distribution waterfall server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env file, then environment)
  2. Parse command-line flags (override configuration)
  3. Initialize logger
  4. Initialize SQLite store and deal service
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: $PORT or 8080)
  -db      SQLite database path (default: $DATABASE_PATH or ./waterfall.db)
           Use ":memory:" for in-memory database
  -log     Log level: debug, info, warn, error (default: $LOG_LEVEL or info)

ENVIRONMENT:
  PORT, DATABASE_PATH, LOG_LEVEL, CACHE_TTL, ALLOWED_ORIGINS,
  SWEEP_CONCURRENCY. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/deals.db"

  # Run with in-memory database and debug logging
  ./server -db=":memory:" -log=debug

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/distribution-engine/api"
	"github.com/warp/distribution-engine/config"
	"github.com/warp/distribution-engine/deal"
	"github.com/warp/distribution-engine/logger"
	"github.com/warp/distribution-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	logLevel := flag.String("log", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.Init(*logLevel)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Error("failed to initialize database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	svc := deal.NewService(store, deal.Options{
		CacheTTL:         cfg.CacheTTL,
		SweepConcurrency: cfg.SweepConcurrency,
		Logger:           log,
	})

	router := api.NewRouter(api.NewHandler(store, svc), cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server starting", "addr", server.Addr, "db", *dbPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}

	log.Info("server stopped")
}
